package controller

import (
	"errors"

	"templora_backend/pkg/config"
)

var appConfig *config.Config

// Webhook classification failures. Events with these errors are recorded
// and acknowledged, never retried by us.
var (
	errNoOwner   = errors.New("webhook event carries no resolvable owner_id note")
	errNoPayment = errors.New("webhook event carries no payment entity")
	errNoReceipt = errors.New("payment notes carry no receipt_no")
)

// Init wires the loaded configuration into the controller layer.
func Init(cfg *config.Config) {
	appConfig = cfg
}

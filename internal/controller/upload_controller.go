package controller

import (
	"log"
	"strconv"

	"templora_backend/internal/model"
	"templora_backend/pkg/database"
	"templora_backend/pkg/utils/image"
	"templora_backend/pkg/utils/jwt"
	"templora_backend/pkg/utils/storage"
	"templora_backend/pkg/utils/validation"

	"github.com/gofiber/fiber/v2"
)

// UploadTemplateImage şablon için önizleme resmi yükler
func UploadTemplateImage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	templateIDStr := c.Params("template_id")
	templateID, err := strconv.ParseUint(templateIDStr, 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid template ID",
		})
	}

	var template model.Template
	if err := database.GetDB().First(&template, templateID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	if template.UserID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to upload images for this template",
		})
	}

	// Resim limiti kontrolü
	var imageCount int64
	database.GetDB().Model(&model.TemplateImage{}).
		Where("template_id = ?", templateID).
		Count(&imageCount)

	if imageCount >= MaxTemplateImages {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Maximum image limit reached",
		})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}

	if err := validation.ValidateImage(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	buf, contentType, err := image.ProcessImage(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	result, err := storage.UploadPreviewImage(claims.StoreName, template.Slug, buf, contentType, file.Filename)
	if err != nil {
		log.Printf("Could not upload template image: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not upload image",
		})
	}

	templateImage := model.TemplateImage{
		TemplateID: uint(templateID),
		URL:        result.URL,
		Order:      int(imageCount),
		IsCover:    imageCount == 0,
	}

	if err := database.GetDB().Create(&templateImage).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save image record",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Image uploaded",
		"image":   templateImage,
	})
}

// DeleteTemplateImage resmi hem R2'den hem veritabanından siler
func DeleteTemplateImage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	imageID := c.Params("image_id")

	var templateImage model.TemplateImage
	if err := database.GetDB().Preload("Template").First(&templateImage, imageID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Image not found",
		})
	}

	if templateImage.Template.UserID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to delete this image",
		})
	}

	if err := storage.DeleteObject(templateImage.URL); err != nil {
		log.Printf("Could not delete image from storage: %v", err)
	}

	if err := database.GetDB().Delete(&templateImage).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete image",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Image deleted",
	})
}

// UploadTemplateArchive indirilebilir şablon paketini yükler
func UploadTemplateArchive(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	templateIDStr := c.Params("template_id")
	templateID, err := strconv.ParseUint(templateIDStr, 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid template ID",
		})
	}

	var template model.Template
	if err := database.GetDB().First(&template, templateID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	if template.UserID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to upload the archive for this template",
		})
	}

	file, err := c.FormFile("archive")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}

	if err := validation.ValidateArchive(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Eski arşivi temizle
	if template.ArchiveURL != "" {
		if err := storage.DeleteObject(template.ArchiveURL); err != nil {
			log.Printf("Could not delete old archive: %v", err)
		}
	}

	result, err := storage.UploadArchive(claims.StoreName, template.Slug, file)
	if err != nil {
		log.Printf("Could not upload template archive: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not upload archive",
		})
	}

	template.ArchiveURL = result.URL
	template.FileSize = file.Size
	if err := database.GetDB().Save(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save archive record",
		})
	}

	return c.JSON(fiber.Map{
		"message":     "Archive uploaded",
		"archive_url": result.URL,
	})
}

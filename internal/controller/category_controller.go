package controller

import (
	"templora_backend/internal/model"
	"templora_backend/pkg/database"

	"github.com/gofiber/fiber/v2"
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func ListCategories(c *fiber.Ctx) error {
	var categories []model.Category
	if err := database.GetDB().Order("name ASC").Find(&categories).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch categories",
		})
	}

	return c.JSON(fiber.Map{
		"categories": categories,
	})
}

// CreateCategory admin tarafından yeni kategori ekler
func CreateCategory(c *fiber.Ctx) error {
	input := new(CategoryInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	category := model.Category{
		Name:        input.Name,
		Description: input.Description,
	}

	if err := database.GetDB().Create(&category).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create category",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Category created",
		"category": category,
	})
}

func UpdateCategory(c *fiber.Ctx) error {
	categoryID := c.Params("id")
	input := new(CategoryInput)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var category model.Category
	if err := database.GetDB().First(&category, categoryID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Category not found",
		})
	}

	category.Name = input.Name
	category.Description = input.Description

	if err := database.GetDB().Save(&category).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update category",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Category updated",
		"category": category,
	})
}

func DeleteCategory(c *fiber.Ctx) error {
	categoryID := c.Params("id")

	var category model.Category
	if err := database.GetDB().First(&category, categoryID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Category not found",
		})
	}

	var templateCount int64
	database.GetDB().Model(&model.Template{}).
		Where("category_id = ?", category.ID).
		Count(&templateCount)
	if templateCount > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Category still has templates assigned",
		})
	}

	if err := database.GetDB().Delete(&category).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete category",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Category deleted",
	})
}

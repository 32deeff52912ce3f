package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"collab-backend/internal/service"
)

// OrganizationMiddleware tenant scoping for organization-rooted routes
type OrganizationMiddleware struct {
	directory *service.Directory
}

// NewOrganizationMiddleware creates an OrganizationMiddleware
func NewOrganizationMiddleware(directory *service.Directory) *OrganizationMiddleware {
	return &OrganizationMiddleware{directory: directory}
}

// orgIDFromParams extracts the organization ID from the URL
func orgIDFromParams(c *fiber.Ctx) (int64, error) {
	idStr := c.Params("orgId")
	if idStr == "" {
		idStr = c.Params("id")
	}
	if idStr == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "organization ID is required")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// RequireMembership rejects callers who are not active members of the
// organization in the URL, and stores the organization ID in locals.
func (m *OrganizationMiddleware) RequireMembership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(int64)
		if !ok || userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		orgID, err := orgIDFromParams(c)
		if err != nil || orgID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid organization ID",
			})
		}

		if !m.directory.IsOrganizationMember(orgID, userID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not an organization member",
			})
		}

		c.Locals("orgID", orgID)
		return c.Next()
	}
}

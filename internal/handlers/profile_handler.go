package handlers

import (
	"errors"
	"io"
	"log"

	"gymflow/internal/models"
	"gymflow/internal/repositories"
	"gymflow/internal/services"
	"gymflow/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// ProfileHandler handles the profile detail and edit requests.
type ProfileHandler struct {
	profileService *services.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// RegisterRoutes registers the profile routes. The router passed in must
// already require a session; both routes assume an authenticated caller.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	profileRoutes := router.Group("/profile")
	profileRoutes.Get("/:id", h.HandleProfileDetail)
	profileRoutes.Post("/:id", h.HandleProfileEdit)
}

// HandleProfileDetail handles GET /profile/:id. Any authenticated viewer
// may read any profile.
func (h *ProfileHandler) HandleProfileDetail(c *fiber.Ctx) error {
	user, err := h.profileService.GetProfile(c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Profile not found",
			})
		}
		log.Printf("Error fetching profile %s: %v", c.Params("id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not load profile",
		})
	}

	return c.JSON(profileDetailResponse(user))
}

// HandleProfileEdit handles POST /profile/:id. Only the owner may edit;
// fields absent from the submission keep their stored values.
func (h *ProfileHandler) HandleProfileEdit(c *fiber.Ctx) error {
	targetID := c.Params("id")
	actorID, _ := c.Locals("user_id").(string)

	input, err := parseProfileUpdate(c)
	if err != nil {
		return renderForm(c, "profile-edit", fiber.Map{}, services.ValidationErrors{
			"profile_picture": err.Error(),
		})
	}

	profile, err := h.profileService.UpdateProfile(actorID, targetID, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "You do not have permission to edit this profile",
			})
		case errors.Is(err, repositories.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Profile not found",
			})
		}
		var fieldErrors services.ValidationErrors
		if errors.As(err, &fieldErrors) {
			return renderForm(c, "profile-edit", editFormValues(input), fieldErrors)
		}
		log.Printf("Error updating profile %s: %v", targetID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update profile",
		})
	}

	return c.Redirect("/profile/"+profile.UserID, fiber.StatusFound)
}

// parseProfileUpdate builds the partial update from the request. A field
// is part of the update only when its key was actually submitted, so the
// service can tell "clear this field" apart from "leave it alone".
func parseProfileUpdate(c *fiber.Ctx) (services.UpdateProfileInput, error) {
	input := services.UpdateProfileInput{}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		input.Username = formValue(form.Value, "username")
		input.FirstName = formValue(form.Value, "first_name")
		input.LastName = formValue(form.Value, "last_name")
		input.DateOfBirth = formValue(form.Value, "date_of_birth")
	} else {
		args := c.Request().PostArgs()
		input.Username = postArg(args.Has("username"), args.Peek("username"))
		input.FirstName = postArg(args.Has("first_name"), args.Peek("first_name"))
		input.LastName = postArg(args.Has("last_name"), args.Peek("last_name"))
		input.DateOfBirth = postArg(args.Has("date_of_birth"), args.Peek("date_of_birth"))
	}

	fileHeader, err := c.FormFile("profile_picture")
	if err != nil {
		// No file part in the request: the stored picture stays as-is.
		return input, nil
	}
	if fileHeader.Size > storage.MaxPictureSize {
		return input, errors.New("uploaded picture is too large")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return input, errors.New("unable to read uploaded picture")
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return input, errors.New("unable to read uploaded picture")
	}

	input.Picture = &services.PictureUpload{
		Filename: fileHeader.Filename,
		Content:  content,
	}
	return input, nil
}

// formValue returns a pointer to the first value for key, or nil when the
// key was not submitted.
func formValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[0]
}

// postArg converts a urlencoded form argument into the same
// present-or-nil shape as formValue.
func postArg(has bool, value []byte) *string {
	if !has {
		return nil
	}
	s := string(value)
	return &s
}

// editFormValues echoes the submitted text fields back into a re-rendered
// edit form.
func editFormValues(input services.UpdateProfileInput) fiber.Map {
	values := fiber.Map{}
	if input.Username != nil {
		values["username"] = *input.Username
	}
	if input.FirstName != nil {
		values["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		values["last_name"] = *input.LastName
	}
	if input.DateOfBirth != nil {
		values["date_of_birth"] = *input.DateOfBirth
	}
	return values
}

// profileDetailResponse shapes the profile summary returned by the detail
// view.
func profileDetailResponse(user *models.User) fiber.Map {
	body := fiber.Map{
		"id":    user.ID,
		"email": user.Email,
	}
	if user.Profile != nil {
		body["profile"] = user.Profile
	}
	return body
}

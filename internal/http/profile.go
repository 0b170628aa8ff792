package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database/loans"
	"github.com/mrlokans/librarian/internal/uploads"
)

const birthDateLayout = "2006-01-02"

// ProfileController serves the profile page plus the profile-edit and
// change-password form posts.
type ProfileController struct {
	service        *auth.Service
	sessionManager *auth.SessionManager
	loans          *loans.Repository
	avatars        *uploads.Store
}

func NewProfileController(service *auth.Service, sessionManager *auth.SessionManager, loansRepo *loans.Repository, avatars *uploads.Store) *ProfileController {
	return &ProfileController{
		service:        service,
		sessionManager: sessionManager,
		loans:          loansRepo,
		avatars:        avatars,
	}
}

// ProfilePage shows the current user's details and their borrow history.
func (ctrl *ProfileController) ProfilePage(c *gin.Context) {
	userID := auth.GetUserID(c)

	user, err := ctrl.service.GetUserByID(userID)
	if err != nil {
		respondInternalError(c, err, "get profile")
		return
	}

	myLogs, err := ctrl.loans.ListForUser(userID)
	if err != nil {
		respondInternalError(c, err, "list my borrows")
		return
	}

	renderPage(c, "profile.html", gin.H{
		"User":     user,
		"MyLogs":   myLogs,
		"Username": user.Username,
		"IsAdmin":  user.IsAdmin(),
	})
}

// UpdateProfile applies the profile form. The avatar upload is optional; a
// submitted picture is stored under a generated filename and replaces the
// previous reference.
func (ctrl *ProfileController) UpdateProfile(c *gin.Context) {
	userID := auth.GetUserID(c)

	input := auth.ProfileInput{
		Fullname: c.PostForm("fullname"),
		Username: c.PostForm("username"),
		Position: c.PostForm("position"),
	}

	if raw := c.PostForm("birth_date"); raw != "" {
		parsed, err := time.Parse(birthDateLayout, raw)
		if err != nil {
			flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
				"Invalid birth date.", "/profile")
			return
		}
		input.BirthDate = &parsed
	}

	if file, err := c.FormFile("avatar"); err == nil && file.Filename != "" {
		filename, err := ctrl.avatars.Save(file)
		if err != nil {
			if errors.Is(err, uploads.ErrUnsupportedType) {
				flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
					err.Error(), "/profile")
				return
			}
			respondInternalError(c, err, "save avatar")
			return
		}
		input.Avatar = filename
	}

	if _, err := ctrl.service.UpdateProfile(userID, input); err != nil {
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			profileErrorMessage(err), "/profile")
		return
	}

	flashAndRedirect(c, ctrl.sessionManager, http.StatusOK, auth.FlashSuccess,
		"Profile updated successfully!", "/profile")
}

func profileErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		return "This username is already taken."
	case errors.Is(err, auth.ErrUsernameInvalid):
		return "Username must be 4-80 characters."
	case errors.Is(err, auth.ErrFullnameInvalid):
		return "Full name must be 2-100 characters."
	case errors.Is(err, auth.ErrBirthDateRequired):
		return "Birth date is required."
	case errors.Is(err, auth.ErrPositionRequired):
		return "Position is required."
	default:
		return "Could not update the profile: " + err.Error()
	}
}

// ChangePassword verifies the old password before storing the new one.
func (ctrl *ProfileController) ChangePassword(c *gin.Context) {
	userID := auth.GetUserID(c)

	oldPassword := c.PostForm("old_password")
	newPassword := c.PostForm("new_password")
	confirmPassword := c.PostForm("confirm_password")

	if newPassword != confirmPassword {
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			"New passwords do not match.", "/profile")
		return
	}

	err := ctrl.service.ChangePassword(userID, oldPassword, newPassword)
	switch {
	case err == nil:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusOK, auth.FlashSuccess,
			"Password changed successfully!", "/profile")
	case errors.Is(err, auth.ErrInvalidPassword):
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			"Old password is incorrect.", "/profile")
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		flashAndRedirect(c, ctrl.sessionManager, http.StatusBadRequest, auth.FlashDanger,
			err.Error(), "/profile")
	default:
		respondInternalError(c, err, "change password")
	}
}

package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/database/loans"
)

// LoansController handles borrow/return actions and the borrow-history views.
type LoansController struct {
	loans          *loans.Repository
	sessionManager *auth.SessionManager
}

func NewLoansController(loansRepo *loans.Repository, sessionManager *auth.SessionManager) *LoansController {
	return &LoansController{
		loans:          loansRepo,
		sessionManager: sessionManager,
	}
}

// Borrow registers an outstanding loan for the current user and decrements
// the book's available-copy counter. Every outcome redirects back to the
// book's detail page with a status message.
func (ctrl *LoansController) Borrow(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	bookURL := fmt.Sprintf("/books/%d", bookID)
	userID := auth.GetUserID(c)

	_, err := ctrl.loans.Borrow(userID, bookID)
	switch {
	case err == nil:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusOK, auth.FlashSuccess,
			"You have successfully borrowed this book!", bookURL)
	case errors.Is(err, loans.ErrBookNotFound):
		if isJSONRequest(c) {
			respondNotFound(c, "book")
			return
		}
		flashAndRedirect(c, ctrl.sessionManager, http.StatusNotFound, auth.FlashDanger,
			"Book not found.", "/")
	case errors.Is(err, loans.ErrOutOfStock):
		flashAndRedirect(c, ctrl.sessionManager, http.StatusConflict, auth.FlashDanger,
			"This book is out of stock, please come back later.", bookURL)
	case errors.Is(err, loans.ErrAlreadyBorrowed):
		flashAndRedirect(c, ctrl.sessionManager, http.StatusConflict, auth.FlashWarning,
			"You are already borrowing this book. Please return it before borrowing again.", bookURL)
	default:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusInternalServerError, auth.FlashDanger,
			"Error while borrowing the book: "+err.Error(), bookURL)
	}
}

// Return closes a loan and restores the book's available-copy counter. Only
// the borrowing user or an admin may return; admins land on the borrow
// history afterwards, members on their own profile.
func (ctrl *LoansController) Return(c *gin.Context) {
	logID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID := auth.GetUserID(c)
	isAdmin := auth.IsAdmin(c)

	target := "/profile"
	if isAdmin {
		target = "/admin/borrows"
	}

	log, err := ctrl.loans.GetByID(logID)
	if err != nil {
		if errors.Is(err, loans.ErrLogNotFound) {
			if isJSONRequest(c) {
				respondNotFound(c, "borrow record")
				return
			}
			flashAndRedirect(c, ctrl.sessionManager, http.StatusNotFound, auth.FlashWarning,
				"This borrow record was already processed or is invalid.", target)
			return
		}
		respondInternalError(c, err, "get borrow record")
		return
	}

	if !isAdmin && log.UserID != userID {
		flashAndRedirect(c, ctrl.sessionManager, http.StatusForbidden, auth.FlashDanger,
			"You do not have permission to perform this action.", "/")
		return
	}

	_, err = ctrl.loans.Return(logID)
	switch {
	case err == nil:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusOK, auth.FlashSuccess,
			"Book returned successfully.", target)
	case errors.Is(err, loans.AlreadyProcessed):
		// Double return is a no-op, reported as informational.
		flashAndRedirect(c, ctrl.sessionManager, http.StatusOK, auth.FlashWarning,
			"This borrow record was already processed or is invalid.", target)
	default:
		flashAndRedirect(c, ctrl.sessionManager, http.StatusInternalServerError, auth.FlashDanger,
			"Error while returning the book: "+err.Error(), target)
	}
}

// History lists the whole ledger for administrators, newest first.
func (ctrl *LoansController) History(c *gin.Context) {
	logs, err := ctrl.loans.ListAll()
	if err != nil {
		respondInternalError(c, err, "list borrow history")
		return
	}

	renderPage(c, "borrow_history.html", gin.H{
		"Logs":     logs,
		"Username": auth.GetUsername(c),
		"IsAdmin":  auth.IsAdmin(c),
	})
}

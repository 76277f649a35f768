package browserchat

import (
	"errors"
	"net/http"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/browser"
	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/db"
	"github.com/neboloop/browserchat/internal/httputil"
	logic "github.com/neboloop/browserchat/internal/logic/browserchat"
	"github.com/neboloop/browserchat/internal/session"
)

// statusFor maps an exchange error to the HTTP status reported to the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrEmptyMessage), errors.Is(err, agents.ErrUnknownAgent),
		errors.Is(err, logic.ErrAgentMismatch):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, logic.ErrAgentBusy), errors.Is(err, browser.ErrProfileLocked):
		return http.StatusConflict
	case errors.Is(err, session.ErrSessionTerminated):
		return http.StatusGone
	case errors.Is(err, logic.ErrNoDatabase):
		return http.StatusNotImplemented
	case errors.Is(err, chat.ErrLoginTimeout):
		return http.StatusUnauthorized
	case errors.Is(err, chat.ErrInputNotFound), errors.Is(err, session.ErrNavigation), errors.Is(err, session.ErrProcessCrash):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusNotFound {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.ErrorWithCode(w, code, err.Error())
}

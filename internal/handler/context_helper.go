package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/middleware"
	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

// actorFromContext resolves the caller and writes 401 when no identity is attached.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := middleware.Claims(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return models.ActorFromClaims(claims), true
}

// actorFor resolves the caller and checks it may act on studentID, writing 403 otherwise.
func actorFor(c *gin.Context, studentID string) (models.Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return actor, false
	}
	if studentID != "" && !actor.CanActFor(studentID) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only act on their own records"))
		return actor, false
	}
	return actor, true
}

func invalidPayload(c *gin.Context, err error) {
	response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
}

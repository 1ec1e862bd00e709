package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/requestdata"
)

// fail maps the error taxonomy onto HTTP statuses. Every rejection the
// services emit carries a kind; anything unclassified is a 500.
func fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindStateConflict:
		if ae.Code == apperr.CodeNotFound {
			status = http.StatusNotFound
		} else {
			status = http.StatusConflict
		}
	case apperr.KindContention:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": ae.Error(), "code": ae.Code})
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madickediagne/LOGISEN/internal/apperr"
	"github.com/madickediagne/LOGISEN/internal/api/middleware"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// kindResponses maps an error kind to its HTTP status and the French message
// shown to the user. The technical detail travels separately.
var kindResponses = map[apperr.Kind]struct {
	status  int
	message string
}{
	apperr.Unauthenticated:        {http.StatusUnauthorized, "Vous devez être connecté"},
	apperr.Validation:             {http.StatusBadRequest, "Requête invalide"},
	apperr.DuplicateActiveRequest: {http.StatusConflict, "Une demande de visite est déjà en cours pour ce logement"},
	apperr.NotFound:               {http.StatusNotFound, "Introuvable"},
	apperr.PermissionDenied:       {http.StatusForbidden, "Action non autorisée"},
	apperr.NetworkUnavailable:     {http.StatusServiceUnavailable, "Service momentanément indisponible"},
	apperr.Timeout:                {http.StatusGatewayTimeout, "Le chargement a pris trop de temps, réessayez"},
	apperr.Remote:                 {http.StatusInternalServerError, "Une erreur est survenue"},
}

// respondError converts a service error into the HTTP response for it.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	resp, ok := kindResponses[kind]
	if !ok {
		resp = kindResponses[apperr.Remote]
	}
	if resp.status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(resp.status, gin.H{"error": resp.message, "detail": err.Error()})
}

// currentUserID reads the authenticated user's id set by the auth middleware.
func currentUserID(c *gin.Context) (utils.SixID, bool) {
	raw, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		return utils.SixID{}, false
	}
	id, err := utils.ParseSixID(raw.(string))
	if err != nil {
		return utils.SixID{}, false
	}
	return id, true
}

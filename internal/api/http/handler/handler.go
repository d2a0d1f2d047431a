// Package handler implements the JSON endpoints of the HTTP transport.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/api/http/middleware"
	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/model"
)

// pathScope returns the scope addressed by the route: application scope when
// the route carries :appId, service scope otherwise.
func pathScope(c *gin.Context) (model.Scope, error) {
	if c.Param("appId") == "" {
		return model.ServiceScope(), nil
	}
	appID, err := pathID(c, "appId")
	if err != nil {
		return model.Scope{}, err
	}
	return model.AppScope(appID), nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.NewErrBadRequest("invalid " + name)
	}
	return id, nil
}

func identity(c *gin.Context) (model.Identity, error) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		return model.Identity{}, apierrors.NewErrMissingAuthorizationToken()
	}
	return id, nil
}

func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apierrors.NewErrBadRequest("invalid request body")
	}
	return nil
}

package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paperflow_go_backend/internal/auth"
	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/workflow"
)

func currentActor(c *gin.Context) (workflow.Actor, bool) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		apperrors.HandleError(c, apperrors.New401Error())
	}
	return actor, ok
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apperrors.HandleError(c, apperrors.New400Error(fmt.Sprintf("Invalid %s", name)))
		return uuid.Nil, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.New400Error(fmt.Sprintf("Invalid %s", name))
	}
	return &id, nil
}

// parseIDList accepts repeated values as well as comma separated ones.
func parseIDList(values []string, field string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, apperrors.New400Error(fmt.Sprintf("Invalid %s", field))
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		apperrors.HandleError(c, apperrors.New400Error("Invalid request body"))
		return false
	}
	return true
}

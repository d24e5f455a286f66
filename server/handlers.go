/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/hummer-starter/items"
)

const dbHealthTimeout = 5 * time.Second

type addItemRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// liveness reports process liveness only. Database state is not consulted.
func (s *Server) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Healthy"})
}

func (s *Server) databaseHealth(c *gin.Context) {
	if s.diag == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "Unhealthy"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbHealthTimeout)
	defer cancel()
	status := s.diag.GetHealthStatus(ctx)
	body := gin.H{"database": status, "pool": s.diag.GetStats()}
	if status == nil || !status.Healthy {
		body["status"] = "Unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "Healthy"
	c.JSON(http.StatusOK, body)
}

func (s *Server) listItems(c *gin.Context) {
	list, err := s.items.All(c.Request.Context())
	if err != nil {
		s.storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	item, err := s.items.Add(c.Request.Context(), req.Name)
	if err != nil {
		s.storageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) deleteItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	if err := s.items.Delete(c.Request.Context(), id); err != nil {
		s.storageError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) storageError(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, items.ErrStorageUnavailable) {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
		return
	}
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type PageHandler struct {
	appName string
}

func NewPageHandler(appName string) *PageHandler {
	return &PageHandler{appName: appName}
}

func (h *PageHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"title": h.appName})
}

func (h *PageHandler) Login(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"title": h.appName})
}

func (h *PageHandler) Register(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{"title": h.appName})
}

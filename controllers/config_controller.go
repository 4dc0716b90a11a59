package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/creditbonus/config"
	"github.com/cppla/creditbonus/utils"
)

// ConfigController serves operator-configured UI content.
type ConfigController struct {
	noticeTitle string
	noticeHTML  string
}

// NewConfigController sanitizes the configured notice once at startup.
func NewConfigController(cfg config.AppConfig) *ConfigController {
	return &ConfigController{
		noticeTitle: cfg.NoticeTitle,
		noticeHTML:  utils.Sanitize(cfg.NoticeHTML),
	}
}

// GetNotice returns the daily bonus announcement shown above the claim button.
func (c *ConfigController) GetNotice(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"title": c.noticeTitle,
		"html":  c.noticeHTML,
	})
}

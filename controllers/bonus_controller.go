package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/creditbonus/bonus"
	"github.com/cppla/creditbonus/middleware"
	"github.com/cppla/creditbonus/utils"
)

// BonusController handles the daily login bonus endpoints.
type BonusController struct {
	engine *bonus.Engine
	cache  *utils.StatusCache
}

// NewBonusController creates a new controller instance. cache may be nil.
func NewBonusController(engine *bonus.Engine, cache *utils.StatusCache) *BonusController {
	return &BonusController{engine: engine, cache: cache}
}

type claimRequest struct {
	UserID string `json:"userId"`
}

// Claim collects today's bonus for the caller.
func (b *BonusController) Claim(ctx *gin.Context) {
	var req claimRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.Fail(ctx, http.StatusBadRequest, 40001, "invalid request payload", err.Error())
		return
	}
	userID, ok := resolveUserID(ctx, req.UserID)
	if !ok {
		return
	}

	res, err := b.engine.Claim(ctx.Request.Context(), userID)
	if err != nil {
		b.fail(ctx, err, "failed to claim daily bonus")
		return
	}
	b.cache.Invalidate(ctx.Request.Context(), userID)

	body := gin.H{
		"success":        true,
		"alreadyClaimed": res.AlreadyClaimed,
		"creditsAwarded": res.CreditsAwarded,
		"streakCount":    res.StreakCount,
		"loginDate":      res.LoginDate,
	}
	if !res.AlreadyClaimed {
		body["baseCredits"] = res.BaseCredits
		body["streakBonus"] = res.StreakBonus
		body["streakReset"] = res.StreakReset
		body["totalCredits"] = res.Balance
	}
	ctx.JSON(http.StatusOK, body)
}

// Status returns whether the caller can claim today and what it would pay.
func (b *BonusController) Status(ctx *gin.Context) {
	userID, ok := resolveUserID(ctx, ctx.Query("userId"))
	if !ok {
		return
	}

	var st bonus.Status
	if userID != "" && b.cache.Get(ctx.Request.Context(), userID, &st) {
		utils.Success(ctx, st)
		return
	}
	st, err := b.engine.Status(ctx.Request.Context(), userID)
	if err != nil {
		b.fail(ctx, err, "failed to load daily bonus status")
		return
	}
	b.cache.Set(ctx.Request.Context(), userID, st, st.ResetsAt)
	utils.Success(ctx, st)
}

// History lists the caller's recent claims.
func (b *BonusController) History(ctx *gin.Context) {
	userID, ok := resolveUserID(ctx, ctx.Query("userId"))
	if !ok {
		return
	}
	limit := 30
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			utils.Fail(ctx, http.StatusBadRequest, 40011, "limit must be a positive integer", "")
			return
		}
		limit = n
	}

	claims, err := b.engine.History(ctx.Request.Context(), userID, limit)
	if err != nil {
		b.fail(ctx, err, "failed to load claim history")
		return
	}
	utils.Success(ctx, gin.H{"items": claims})
}

// Balance returns the caller's credit balance.
func (b *BonusController) Balance(ctx *gin.Context) {
	userID, ok := resolveUserID(ctx, ctx.Query("userId"))
	if !ok {
		return
	}
	credits, err := b.engine.Balance(ctx.Request.Context(), userID)
	if err != nil {
		b.fail(ctx, err, "failed to load balance")
		return
	}
	utils.Success(ctx, gin.H{"userId": userID, "credits": credits})
}

func (b *BonusController) fail(ctx *gin.Context, err error, message string) {
	if errors.Is(err, bonus.ErrValidation) {
		utils.Fail(ctx, http.StatusBadRequest, 40010, err.Error(), "")
		return
	}
	utils.Sugar.Errorw(message, "error", err, "request_id", ctx.GetString(utils.RequestIDKey))
	utils.Fail(ctx, http.StatusInternalServerError, 50030, message, err.Error())
}

// resolveUserID prefers the authenticated identity. A request naming a
// different user than the token is rejected.
func resolveUserID(ctx *gin.Context, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	authID := ctx.GetString(middleware.ContextUserIDKey)
	if authID == "" {
		return requested, true
	}
	if requested != "" && requested != authID {
		utils.Fail(ctx, http.StatusForbidden, 40310, "userId does not match authenticated user", "")
		return "", false
	}
	return authID, true
}

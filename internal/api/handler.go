package api

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/doodlegames/doodle-rewards/internal/errors"
	"github.com/doodlegames/doodle-rewards/internal/ethereum"
	"github.com/doodlegames/doodle-rewards/internal/reward"
	"github.com/doodlegames/doodle-rewards/pkg/logger"
)

// Handler holds the services the HTTP surface depends on.
type Handler struct {
	rewards reward.Service
	token   ethereum.TokenService
}

func NewHandler(rewards reward.Service, token ethereum.TokenService) *Handler {
	return &Handler{rewards: rewards, token: token}
}

// RewardRequest is the POST /api/reward body. Score is a pointer so a
// missing field can be told apart from zero.
type RewardRequest struct {
	PlayerWallet string `json:"playerWallet"`
	Score        *int64 `json:"score"`
}

// LinkReferrerRequest is the POST /api/link-referrer body.
type LinkReferrerRequest struct {
	ReferralWallet string `json:"referralWallet"`
	ReferrerCode   string `json:"referrerCode"`
}

// GetBalance handles GET /api/balance/:walletAddress
func (h *Handler) GetBalance(c *gin.Context) {
	playerWallet := c.Param("walletAddress")

	if !common.IsHexAddress(playerWallet) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid player wallet address."})
		return
	}

	balance, err := h.token.BalanceOf(c.Request.Context(), playerWallet)
	if err != nil {
		logger.Error("Error fetching balance: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not fetch token balance."})
		return
	}

	logger.Info("Checking balance for %s: %s DOODLE", playerWallet, balance)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": balance,
	})
}

// IssueReward handles POST /api/reward
func (h *Handler) IssueReward(c *gin.Context) {
	var req RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request or score too low (min 50 required)."})
		return
	}
	if req.Score == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request or score too low (min 50 required)."})
		return
	}

	outcome, err := h.rewards.IssueReward(c.Request.Context(), req.PlayerWallet, *req.Score)
	if err != nil {
		switch e := err.(type) {
		case *errors.ValidationError:
			if e.Field == "playerWallet" {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid player wallet address."})
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request or score too low (min 50 required)."})
			}
		case *errors.CooldownError:
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": fmt.Sprintf("Reward cooldown active. Try again in %d minutes.", e.MinutesRemaining()),
			})
		default:
			logger.Error("Error minting reward: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Blockchain transaction failed. Check server logs."})
		}
		return
	}

	resp := gin.H{
		"success":      true,
		"message":      fmt.Sprintf("Successfully minted %s DOODLE to %s", outcome.Amount.String(), outcome.Wallet),
		"rewardTxHash": outcome.TxHash,
	}
	if outcome.Referral != nil {
		resp["awardedToReferral"] = outcome.Referral.BonusAmount.String()
		resp["awardedToReferrer"] = outcome.Referral.ReferrerWallet
		resp["bonusTxHash"] = outcome.Referral.BonusTxHash
	}

	c.JSON(http.StatusOK, resp)
}

// LinkReferrer handles POST /api/link-referrer
func (h *Handler) LinkReferrer(c *gin.Context) {
	var req LinkReferrerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "referralWallet and referrerCode are required."})
		return
	}

	result, err := h.rewards.LinkReferrer(req.ReferralWallet, req.ReferrerCode)
	if err != nil {
		switch e := err.(type) {
		case *errors.ValidationError:
			c.JSON(http.StatusBadRequest, gin.H{"message": e.Message})
		default:
			c.Error(&errors.APIError{
				StatusCode: http.StatusInternalServerError,
				Message:    "Failed to link referrer",
				Err:        err,
			})
		}
		return
	}

	if result == reward.LinkAlreadyExists {
		c.JSON(http.StatusOK, gin.H{"message": "Referrer already linked."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Referrer linked successfully."})
}

package http

import (
	"context"
	"math/big"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/dex-client/internal/actions"
	"github.com/quantumauth-io/dex-client/internal/assistant"
	"github.com/quantumauth-io/dex-client/internal/chain"
	"github.com/quantumauth-io/dex-client/internal/quote"
	"github.com/quantumauth-io/dex-client/internal/session"
	"github.com/quantumauth-io/dex-client/internal/tokens"
	"github.com/quantumauth-io/dex-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

type QuoteComputer interface {
	Compute(ctx context.Context, in, out tokens.Token, amountIn string) (quote.Result, error)
	FeeTier() uint32
}

type Handler struct {
	sess      *session.Session
	registry  *tokens.Registry
	quotes    QuoteComputer
	assistant *assistant.Assistant
	chainID   *big.Int
}

func NewHandler(sess *session.Session, registry *tokens.Registry, quotes QuoteComputer, asst *assistant.Assistant, chainID *big.Int) *Handler {
	return &Handler{
		sess:      sess,
		registry:  registry,
		quotes:    quotes,
		assistant: asst,
		chainID:   chainID,
	}
}

// -------- DTOs for local client API --------

type tabReq struct {
	Tab string `json:"tab" binding:"required"`
}

type pairReq struct {
	In  string `json:"in"  binding:"required"`
	Out string `json:"out" binding:"required"`
}

type poolPairReq struct {
	A string `json:"a" binding:"required"`
	B string `json:"b" binding:"required"`
}

type amountReq struct {
	AmountIn string `json:"amountIn"`
}

type liquidityAmountsReq struct {
	AmountA string `json:"amountA"`
	AmountB string `json:"amountB"`
}

type addLiquidityReq struct {
	WrapNative bool `json:"wrapNative"`
}

type assistantReq struct {
	Question string `json:"question" binding:"required"`
}

type quoteRes struct {
	In        string `json:"in"`
	Out       string `json:"out"`
	AmountIn  string `json:"amountIn"`
	Display   string `json:"display"`
	AmountOut string `json:"amountOutRaw,omitempty"`
	Hops      int    `json:"hops,omitempty"`
	FeeTier   uint32 `json:"feeTier"`
}

type actionRes struct {
	Outcome actions.Outcome `json:"outcome"`
	State   session.State   `json:"state"`
}

// -------- Handlers --------

func (h *Handler) Health(c *gin.Context) {
	chainID := ""
	if h.chainID != nil {
		chainID = h.chainID.String()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"chainId":   chainID,
		"assistant": h.assistant.Enabled(),
	})
}

func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

func (h *Handler) Tokens(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.All())
}

func (h *Handler) Connect(c *gin.Context) {
	account, err := h.sess.Connect(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account.Hex()})
}

func (h *Handler) SwitchTab(c *gin.Context) {
	var req tabReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.sess.SwitchTab(c.Request.Context(), session.Tab(req.Tab)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

func (h *Handler) SelectPair(c *gin.Context) {
	var req pairReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.sess.SelectPair(req.In, req.Out); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

func (h *Handler) Flip(c *gin.Context) {
	h.sess.FlipTokens()
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

// SetAmount stores the typed amount; the quote lands in state.amountOut
// once the debounce window has passed.
func (h *Handler) SetAmount(c *gin.Context) {
	var req amountReq
	if !bindJSON(c, &req) {
		return
	}
	h.sess.SetAmountIn(req.AmountIn)
	c.JSON(http.StatusAccepted, h.sess.Snapshot())
}

// Quote prices a pair immediately, outside the session and its debounce.
func (h *Handler) Quote(c *gin.Context) {
	in, err := h.registry.BySymbol(c.Query("in"))
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := h.registry.BySymbol(c.Query("out"))
	if err != nil {
		writeError(c, err)
		return
	}

	res := quoteRes{
		In:       in.Symbol,
		Out:      out.Symbol,
		AmountIn: c.Query("amount"),
		FeeTier:  h.quotes.FeeTier(),
	}

	r, err := h.quotes.Compute(c.Request.Context(), in, out, res.AmountIn)
	switch {
	case err == nil:
		res.Display = r.Display
		res.AmountOut = r.AmountOut.String()
		res.Hops = r.Route.Hops
	case errors.Is(err, tokens.ErrInvalidAmount):
		res.Display = quote.ZeroDisplay
	default:
		res.Display = quote.NoPool
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Swap(c *gin.Context) {
	outcome, err := h.sess.Swap(c.Request.Context())
	h.writeAction(c, outcome, err)
}

func (h *Handler) SelectPoolPair(c *gin.Context) {
	var req poolPairReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.sess.SelectPoolPair(req.A, req.B); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

func (h *Handler) SetLiquidityAmounts(c *gin.Context) {
	var req liquidityAmountsReq
	if !bindJSON(c, &req) {
		return
	}
	h.sess.SetLiquidityAmounts(req.AmountA, req.AmountB)
	c.JSON(http.StatusOK, h.sess.Snapshot())
}

func (h *Handler) AddLiquidity(c *gin.Context) {
	var req addLiquidityReq
	// an empty body means the default flow
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	outcome, err := h.sess.AddLiquidity(c.Request.Context(), actions.LiquidityOptions{WrapNative: req.WrapNative})
	h.writeAction(c, outcome, err)
}

func (h *Handler) Positions(c *gin.Context) {
	if err := h.sess.RefreshPositions(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sess.Snapshot().Positions)
}

func (h *Handler) Collect(c *gin.Context) {
	outcome, err := h.sess.Collect(c.Request.Context(), c.Param("id"))
	h.writeAction(c, outcome, err)
}

func (h *Handler) Remove(c *gin.Context) {
	outcome, err := h.sess.Remove(c.Request.Context(), c.Param("id"))
	h.writeAction(c, outcome, err)
}

func (h *Handler) DismissNotification(c *gin.Context) {
	h.sess.DismissNotification(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) Assistant(c *gin.Context) {
	var req assistantReq
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.assistant.Ask(req.Question, h.sess.Snapshot())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// -------- helpers --------

func (h *Handler) writeAction(c *gin.Context, outcome actions.Outcome, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("action failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(status, gin.H{"error": err.Error(), "outcome": outcome})
		return
	}
	c.JSON(http.StatusOK, actionRes{Outcome: outcome, State: h.sess.Snapshot()})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorBody(err.Error()))
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrWalletUnavailable),
		errors.Is(err, session.ErrNotConnected):
		return http.StatusPreconditionRequired
	case errors.Is(err, session.ErrUnknownPosition):
		return http.StatusNotFound
	case errors.Is(err, actions.ErrIncompleteInput),
		errors.Is(err, actions.ErrSameToken),
		errors.Is(err, actions.ErrNothingToCollect),
		errors.Is(err, tokens.ErrUnknownToken),
		errors.Is(err, tokens.ErrInvalidAmount),
		errors.Is(err, session.ErrUnknownTab):
		return http.StatusBadRequest
	case errors.Is(err, chain.ErrTransactionFailed):
		return http.StatusBadGateway
	case errors.Is(err, wallet.ErrRequestRejected):
		return http.StatusForbidden
	case errors.Is(err, assistant.ErrDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ardaeerol/smart-connect4/internal/analytics"
	"github.com/ardaeerol/smart-connect4/internal/bot"
	"github.com/ardaeerol/smart-connect4/internal/eval"
	"github.com/ardaeerol/smart-connect4/internal/game"
	"github.com/ardaeerol/smart-connect4/internal/search"
)

const defaultMaxDepth = 9

type Server struct {
	router     *gin.Engine
	manager    *game.Manager
	bot        *bot.Bot
	analytics  *analytics.Producer
	log        zerolog.Logger
	maxDepth   int
	sweepEvery time.Duration

	subs  map[string]map[*wsClient]struct{}
	subMu sync.RWMutex
}

type Config struct {
	Bot        *bot.Bot
	SessionTTL time.Duration
	SweepEvery time.Duration

	// MaxDepth caps the depth a client may request from /api/ai/move.
	MaxDepth  int
	Analytics *analytics.Producer
	Logger    zerolog.Logger
}

func New(cfg Config) *Server {
	if cfg.Bot == nil {
		cfg.Bot = bot.New(bot.Config{Logger: cfg.Logger})
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = 30 * time.Second
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	s := &Server{
		router:     router,
		bot:        cfg.Bot,
		analytics:  cfg.Analytics,
		log:        cfg.Logger,
		maxDepth:   cfg.MaxDepth,
		sweepEvery: cfg.SweepEvery,
		subs:       make(map[string]map[*wsClient]struct{}),
	}
	s.manager = game.NewManager(cfg.SessionTTL, s.onFinish, cfg.Logger)

	router.GET("/health", s.handleHealth)
	api := router.Group("/api")
	api.POST("/games", s.handleCreateGame)
	api.GET("/games/:id", s.handleGetGame)
	api.DELETE("/games/:id", s.handleDeleteGame)
	api.POST("/games/:id/moves", s.handleMove)
	api.POST("/ai/move", s.handleAIMove)
	api.POST("/ai/evaluate", s.handleEvaluate)
	router.GET("/ws", s.handleWS)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", addr).Msg("server-listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.sweeper(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("server-shutdown")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) sweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.manager.SweepIdle(); n > 0 {
				s.log.Info().Int("expired", n).Int("active", s.manager.Len()).Msg("sessions-swept")
			}
		}
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().Str("method", c.Request.Method).Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).Dur("latency", time.Since(start)).Msg("http-request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":   "ok",
		"sessions": s.manager.Len(),
		"strategy": s.bot.Strategy(),
		"depth":    s.bot.Depth(),
	}
	if n, ok := s.bot.BookSize(c.Request.Context()); ok {
		resp["bookEntries"] = n
	}
	c.JSON(http.StatusOK, resp)
}

type createGameRequest struct {
	Mode  game.Mode `json:"mode" binding:"required"`
	First string    `json:"first"`
}

type gameResponse struct {
	Game game.GameState `json:"game"`
	AI   *bot.Decision  `json:"ai,omitempty"`
}

func parseFirst(s string) (game.Piece, bool) {
	switch s {
	case "", "player":
		return game.PlayerPiece, true
	case "ai":
		return game.AiPiece, true
	case "random":
		return game.Empty, true
	}
	return game.Empty, false
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	first, ok := parseFirst(req.First)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "first must be player, ai or random"})
		return
	}
	g, err := s.manager.Create(req.Mode, first)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.analytics.Publish(c.Request.Context(), analytics.EventGameStarted, g.ID, map[string]any{
		"gameId": g.ID,
		"mode":   g.Mode,
		"first":  g.Turn.String(),
	})
	resp := gameResponse{Game: g}
	if g.AITurn() {
		dec, next, err := s.playAITurn(c.Request.Context(), g)
		if err != nil {
			s.writeError(c, err)
			return
		}
		resp = gameResponse{Game: next, AI: &dec}
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleGetGame(c *gin.Context) {
	g, ok := s.manager.Get(c.Param("id"))
	if !ok {
		s.writeError(c, game.ErrGameNotFound)
		return
	}
	c.JSON(http.StatusOK, gameResponse{Game: g})
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	if !s.manager.Remove(c.Param("id")) {
		s.writeError(c, game.ErrGameNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

type moveRequest struct {
	Column *int `json:"column" binding:"required"`
}

func (s *Server) handleMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := s.applyMove(c.Request.Context(), c.Param("id"), *req.Column)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// applyMove plays column for the side to move and, in AI mode, lets the
// bot answer.
func (s *Server) applyMove(ctx context.Context, gameID string, column int) (gameResponse, error) {
	g, ok := s.manager.Get(gameID)
	if !ok {
		return gameResponse{}, game.ErrGameNotFound
	}
	if g.AITurn() {
		return gameResponse{}, game.ErrInvalidTurn
	}
	res, next, err := s.manager.HandleMove(game.Move{GameID: gameID, Piece: g.Turn, Column: column})
	if err != nil {
		return gameResponse{}, err
	}
	s.afterMove(ctx, next, res)

	resp := gameResponse{Game: next}
	if next.AITurn() {
		dec, after, err := s.playAITurn(ctx, next)
		if err != nil {
			return gameResponse{}, err
		}
		resp = gameResponse{Game: after, AI: &dec}
	}
	return resp, nil
}

func (s *Server) playAITurn(ctx context.Context, g game.GameState) (bot.Decision, game.GameState, error) {
	dec, err := s.bot.Decide(ctx, g.Board, bot.Request{
		Progress: func(p search.Progress) {
			s.broadcast(g.ID, map[string]any{
				"type":   "thinking",
				"gameId": g.ID,
				"depth":  p.Depth,
				"column": p.Result.Column,
				"score":  p.Result.Score,
				"nodes":  p.Stats.Nodes,
			})
		},
	})
	if err != nil {
		return dec, g, err
	}
	res, next, err := s.manager.HandleMove(game.Move{GameID: g.ID, Piece: game.AiPiece, Column: dec.Column})
	if err != nil {
		return dec, g, err
	}
	s.publishDecision(ctx, g.ID, dec)
	s.afterMove(ctx, next, res)
	return dec, next, nil
}

func (s *Server) afterMove(ctx context.Context, g game.GameState, res game.MoveResult) {
	s.broadcast(g.ID, map[string]any{
		"type": "state",
		"game": g,
		"lastMove": map[string]any{
			"row":    res.Row,
			"column": res.Column,
			"piece":  res.Piece,
		},
	})
	s.analytics.Publish(ctx, analytics.EventMovePlayed, g.ID, map[string]any{
		"gameId": g.ID,
		"mode":   g.Mode,
		"piece":  res.Piece.String(),
		"column": res.Column,
		"row":    res.Row,
		"ply":    len(g.Moves),
	})
}

func (s *Server) publishDecision(ctx context.Context, gameID string, dec bot.Decision) {
	s.analytics.Publish(ctx, analytics.EventAIMove, gameID, map[string]any{
		"gameId":    gameID,
		"strategy":  dec.Strategy,
		"depth":     dec.Depth,
		"column":    dec.Column,
		"outcome":   dec.Score.Outcome.String(),
		"nodes":     dec.Stats.Nodes,
		"cutoffs":   dec.Stats.Cutoffs,
		"elapsedMs": float64(dec.Stats.Elapsed) / float64(time.Millisecond),
		"fromBook":  dec.FromBook,
		"fallback":  dec.Fallback,
	})
}

func (s *Server) onFinish(g game.GameState) {
	winner := g.Winner.String()
	if g.IsDraw {
		winner = "draw"
	}
	s.analytics.Publish(context.Background(), analytics.EventGameFinished, g.ID, map[string]any{
		"gameId":    g.ID,
		"mode":      g.Mode,
		"winner":    winner,
		"moves":     len(g.Moves),
		"duration":  g.EndedAt.Sub(g.StartedAt).Seconds(),
		"startedAt": g.StartedAt,
		"endedAt":   g.EndedAt,
	})
}

type aiMoveRequest struct {
	Board    game.Board `json:"board"`
	Depth    int        `json:"depth"`
	Strategy string     `json:"strategy"`
}

func (s *Server) handleAIMove(c *gin.Context) {
	var req aiMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Board.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Depth < 0 || req.Depth > s.maxDepth {
		c.JSON(http.StatusBadRequest, gin.H{"error": "depth out of range", "max": s.maxDepth})
		return
	}
	var strategy bot.Strategy
	if req.Strategy != "" {
		st, err := bot.ParseStrategy(req.Strategy)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		strategy = st
	}
	dec, err := s.bot.Decide(c.Request.Context(), req.Board, bot.Request{Depth: req.Depth, Strategy: strategy})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.publishDecision(c.Request.Context(), "", dec)
	c.JSON(http.StatusOK, dec)
}

type evaluateRequest struct {
	Board game.Board `json:"board"`
	Piece game.Piece `json:"piece"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Board.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Piece == game.Empty {
		req.Piece = game.AiPiece
	}
	if req.Piece != game.PlayerPiece && req.Piece != game.AiPiece {
		c.JSON(http.StatusBadRequest, gin.H{"error": "piece must be 1 (player) or 2 (ai)"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"piece":          req.Piece,
		"score":          eval.ScorePosition(&req.Board, req.Piece),
		"terminal":       req.Board.IsTerminal(),
		"playerWins":     req.Board.WinningMove(game.PlayerPiece),
		"aiWins":         req.Board.WinningMove(game.AiPiece),
		"validLocations": req.Board.ValidLocations(),
		"pieces":         req.Board.Count(req.Piece),
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidCol), errors.Is(err, game.ErrInvalidBoard), errors.Is(err, bot.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrColumnFull), errors.Is(err, game.ErrInvalidTurn), errors.Is(err, game.ErrGameFinished):
		return http.StatusConflict
	case errors.Is(err, bot.ErrNoMoves):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/review"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/service"
)

// handleQuery runs a full phenotype query.
func (s *Server) handleQuery(c *gin.Context) {
	var params service.QueryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := s.engine.Query(c.Request.Context(), params)
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleNextQuestion returns the most discriminative next question for the
// given observed/excluded lists, outside any session.
func (s *Server) handleNextQuestion(c *gin.Context) {
	var params service.QueryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	next, unmatched, err := s.engine.SuggestNext(c.Request.Context(), params.Observed, params.Excluded)
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	if next == nil {
		c.JSON(http.StatusOK, gin.H{
			"question":         nil,
			"message":          "no further question available",
			"unmatched_inputs": unmatched,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"question":         next,
		"unmatched_inputs": unmatched,
	})
}

// handleGetGene looks up a single gene and its module context.
func (s *Server) handleGetGene(c *gin.Context) {
	result, err := s.engine.QueryGene(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.respondError(c, err, true)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleSearchPhenotypes serves the autocomplete index.
func (s *Server) handleSearchPhenotypes(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	refs := s.engine.SearchPhenotypes(c.Query("q"), limit)
	c.JSON(http.StatusOK, gin.H{"phenotypes": refs, "count": len(refs)})
}

// handleListModules returns a summary of every module.
func (s *Server) handleListModules(c *gin.Context) {
	summaries, err := s.engine.ModuleSummaries(c.Request.Context(), 5)
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modules": summaries})
}

// handleGetModule returns one module's summary.
func (s *Server) handleGetModule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid module id"})
		return
	}

	summary, err := s.engine.ModuleSummary(c.Request.Context(), id, 10)
	if err != nil {
		s.respondError(c, err, true)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleModulePredictions returns expected-but-unobserved phenotypes for a
// module given observed/excluded query parameters.
func (s *Server) handleModulePredictions(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid module id"})
		return
	}
	topN := 0
	if v := c.Query("top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			topN = n
		}
	}

	observed, excluded, unmatched := s.engine.ResolveInputs(
		c.QueryArray("observed"), c.QueryArray("excluded"))

	predictions, err := s.engine.Predictor().PredictMissing(id, observed, excluded, topN)
	if err != nil {
		s.respondError(c, err, true)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"module_id":        id,
		"predictions":      predictions,
		"unmatched_inputs": unmatched,
	})
}

// handleCreateSession starts a new interactive session.
func (s *Server) handleCreateSession(c *gin.Context) {
	session, err := s.sessions.Create()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, session.State())
}

// handleSessionReset clears every answer of a session.
func (s *Server) handleSessionReset(c *gin.Context) {
	if !s.sessions.Reset(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	session, _ := s.sessions.Get(c.Param("id"))
	c.JSON(http.StatusOK, session.State())
}

// handleGetSession returns a session's current state.
func (s *Server) handleGetSession(c *gin.Context) {
	session, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// handleDeleteSession removes a session.
func (s *Server) handleDeleteSession(c *gin.Context) {
	if !s.sessions.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// sessionAnswerRequest is the body of POST /sessions/:id/answers.
type sessionAnswerRequest struct {
	Phenotype string `json:"phenotype" binding:"required"`
	Answer    string `json:"answer" binding:"required"`
}

// handleSessionAnswer records one answer and returns the updated result.
func (s *Server) handleSessionAnswer(c *gin.Context) {
	var req sessionAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	answer, ok := domain.ParseAnswer(req.Answer)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer must be yes, no, or unknown"})
		return
	}

	result, err := s.sessions.Answer(c.Request.Context(), c.Param("id"), req.Phenotype, answer)
	if err != nil {
		if _, exists := s.sessions.Get(c.Param("id")); !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		s.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleSessionResult computes the session's current query result.
func (s *Server) handleSessionResult(c *gin.Context) {
	result, err := s.sessions.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		if _, exists := s.sessions.Get(c.Param("id")); !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		s.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleSessionNext returns the next question for a session.
func (s *Server) handleSessionNext(c *gin.Context) {
	next, err := s.sessions.Next(c.Request.Context(), c.Param("id"))
	if err != nil {
		if _, exists := s.sessions.Get(c.Param("id")); !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		s.respondError(c, err, false)
		return
	}
	if next == nil {
		c.JSON(http.StatusOK, gin.H{
			"question": nil,
			"message":  "no further question available",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": next})
}

// reviewRequest is the body of PUT /sessions/:id/review.
type reviewRequest struct {
	SuggestedModule int     `json:"suggested_module"`
	ConfirmedModule int     `json:"confirmed_module"`
	Agreed          bool    `json:"agreed"`
	Confidence      float64 `json:"confidence"`
	Notes           string  `json:"notes"`
}

// handleSaveReview records the clinician's sign-off for a session. The
// phenotype sets are taken from the live session so the stored review stays
// interpretable after the session is retired.
func (s *Server) handleSaveReview(c *gin.Context) {
	sessionID := c.Param("id")
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	state := session.State()
	rv := &review.Review{
		SessionID:       sessionID,
		SuggestedModule: req.SuggestedModule,
		ConfirmedModule: req.ConfirmedModule,
		Agreed:          req.Agreed,
		Confidence:      req.Confidence,
		Observed:        state.Observed,
		Excluded:        state.Excluded,
		Notes:           req.Notes,
	}
	if err := s.reviews.Save(c.Request.Context(), rv); err != nil {
		s.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, rv)
}

// createReviewRequest is the body of POST /reviews.
type createReviewRequest struct {
	SessionID string   `json:"session_id" binding:"required"`
	Observed  []string `json:"observed"`
	Excluded  []string `json:"excluded"`
	reviewRequest
}

// handleCreateReview records a clinician sign-off addressed by body instead
// of path. Unlike the per-session route it does not require the session to
// still be live, so sign-offs can arrive after the consultation ended.
func (s *Server) handleCreateReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rv := &review.Review{
		SessionID:       req.SessionID,
		SuggestedModule: req.SuggestedModule,
		ConfirmedModule: req.ConfirmedModule,
		Agreed:          req.Agreed,
		Confidence:      req.Confidence,
		Observed:        req.Observed,
		Excluded:        req.Excluded,
		Notes:           req.Notes,
	}
	if err := s.reviews.Save(c.Request.Context(), rv); err != nil {
		s.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, rv)
}

// handleGetReview returns the review recorded for a session.
func (s *Server) handleGetReview(c *gin.Context) {
	rv, err := s.reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	if rv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no review for session"})
		return
	}
	c.JSON(http.StatusOK, rv)
}

// handleListReviews returns reviews newest-first with pagination.
func (s *Server) handleListReviews(c *gin.Context) {
	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	reviews, err := s.reviews.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	total, err := s.reviews.Count(c.Request.Context())
	if err != nil {
		s.respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "total": total})
}

package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizhub/internal/controller"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/service"
)

type QuizController struct {
	quizService service.QuizSessionService
}

func NewQuizController(quizService service.QuizSessionService) *QuizController {
	return &QuizController{quizService: quizService}
}

// Start godoc
// @Summary Start a quiz session
// @Description Picks random live questions matching the optional filters and starts the clock.
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.StartQuizRequest false "Quiz options"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid options or no matching questions"
// @Failure 401 {object} dto.ErrorResponse
// @Router /quiz/start [post]
func (c *QuizController) Start(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var req dto.StartQuizRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			controller.RespondBindError(ctx, err)
			return
		}
	}
	resp, err := c.quizService.Start(ctx.Request.Context(), identity, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// SaveAnswer godoc
// @Summary Save or clear one answer
// @Description Last write wins per question, ordered by the client seq; a retry with an older or equal seq is ignored. An empty selected_option clears the answer.
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaveAnswerRequest true "Answer"
// @Success 200 {object} dto.SaveAnswerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Session paused or submitted"
// @Router /quiz/save-answer [post]
func (c *QuizController) SaveAnswer(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var req dto.SaveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.quizService.SaveAnswer(ctx.Request.Context(), identity, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SaveState godoc
// @Summary Autosave position and clock
// @Description Applied only when seq is newer than the stored one; otherwise returns the stored state with applied=false.
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SaveStateRequest true "State"
// @Success 200 {object} dto.SaveStateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /quiz/save-state [post]
func (c *QuizController) SaveState(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var req dto.SaveStateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.quizService.SaveState(ctx.Request.Context(), identity, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Pause godoc
// @Summary Pause a session
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PauseRequest true "Session"
// @Success 200 {object} dto.SessionResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /quiz/pause [post]
func (c *QuizController) Pause(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var req dto.PauseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.quizService.Pause(ctx.Request.Context(), identity, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Resume godoc
// @Summary Resume a paused session
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SessionRequest true "Session"
// @Success 200 {object} dto.SessionResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /quiz/resume [post]
func (c *QuizController) Resume(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var req dto.SessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.quizService.Resume(ctx.Request.Context(), identity, req.SessionID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Submit godoc
// @Summary Submit and score a session
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SessionRequest true "Session"
// @Success 200 {object} dto.ResultResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already submitted"
// @Router /quiz/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var req dto.SessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.quizService.Submit(ctx.Request.Context(), identity, req.SessionID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Bookmark godoc
// @Summary Bookmark or un-bookmark a question
// @Tags Quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BookmarkRequest true "Bookmark"
// @Success 200 {object} dto.AnswerState
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /quiz/bookmark [post]
func (c *QuizController) Bookmark(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var req dto.BookmarkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.quizService.Bookmark(ctx.Request.Context(), identity, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListSessions godoc
// @Summary List my sessions, newest first
// @Tags Quiz
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.SessionListResponse
// @Router /quiz/sessions [get]
func (c *QuizController) ListSessions(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var page dto.PageQuery
	if err := ctx.ShouldBindQuery(&page); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.quizService.ListSessions(ctx.Request.Context(), identity, page)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetSession godoc
// @Summary Resume view of a session
// @Tags Quiz
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /quiz/sessions/{sessionId} [get]
func (c *QuizController) GetSession(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	resp, err := c.quizService.GetSession(ctx.Request.Context(), identity, ctx.Param("sessionId"))
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetResults godoc
// @Summary Results of a submitted session
// @Tags Quiz
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Success 200 {object} dto.ResultResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Session not submitted yet"
// @Router /quiz/results/{sessionId} [get]
func (c *QuizController) GetResults(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	resp, err := c.quizService.GetResults(ctx.Request.Context(), identity, ctx.Param("sessionId"))
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/foxseedlab/callscribe/internal/session"
	"github.com/labstack/echo/v4"
)

type joinRequest struct {
	MeetingURL     string  `json:"meetingUrl"`
	BotDisplayName string  `json:"botDisplayName"`
	MeetingID      *string `json:"meetingId"`
}

type sessionResponse struct {
	*repository.Session
	ParticipantCount     int `json:"participantCount"`
	TranscriptEntryCount int `json:"transcriptEntryCount"`
}

type joinFailedResponse struct {
	Error   string          `json:"error"`
	Session sessionResponse `json:"session"`
}

func toResponse(s *repository.Session) sessionResponse {
	return sessionResponse{
		Session:              s,
		ParticipantCount:     s.ParticipantCount(),
		TranscriptEntryCount: s.TranscriptEntryCount(),
	}
}

func toResponses(list []*repository.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toResponse(s))
	}
	return out
}

func (s *Server) joinMeeting(c echo.Context) error {
	req := new(joinRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.MeetingURL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "meetingUrl is required")
	}

	joined, err := s.sessions.Join(c.Request().Context(), userID(c), session.JoinInput{
		MeetingURL:     req.MeetingURL,
		BotDisplayName: req.BotDisplayName,
		MeetingID:      req.MeetingID,
	})
	var joinErr *session.JoinError
	if errors.As(err, &joinErr) && joinErr.Session != nil {
		return c.JSON(http.StatusBadGateway, joinFailedResponse{
			Error:   joinErr.Error(),
			Session: toResponse(joinErr.Session),
		})
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toResponse(joined))
}

func (s *Server) leaveMeeting(c echo.Context) error {
	left, err := s.sessions.Leave(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toResponse(left))
}

func (s *Server) getSession(c echo.Context) error {
	found, err := s.sessions.Session(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toResponse(found))
}

func (s *Server) activeSessions(c echo.Context) error {
	list, err := s.sessions.ActiveSessions(c.Request().Context(), userID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toResponses(list))
}

func (s *Server) sessionHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	list, err := s.sessions.SessionHistory(c.Request().Context(), userID(c), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toResponses(list))
}

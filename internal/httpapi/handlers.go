package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/snonux/parlo/internal/translation"
)

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
	Mode   string `json:"mode"`
}

type modeRequest struct {
	PreferOnline bool `json:"prefer_online"`
}

type translateResponse struct {
	TranslatedText string   `json:"translated_text"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Path           string   `json:"path"`
}

type statusResponse struct {
	Engine       string `json:"engine"`
	Reachable    bool   `json:"reachable"`
	PreferOnline bool   `json:"prefer_online"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}

	var in translateRequest
	if err := decodeValidated(raw, translateSchema, &in); err != nil {
		return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	mode, err := translation.ParseMode(in.Mode)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}
	req := translation.Request{
		Text:           in.Text,
		SourceLanguage: in.Source,
		TargetLanguage: in.Target,
		RequestedMode:  mode,
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = s.opts.DefaultSource
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = s.opts.DefaultTarget
	}

	result, err := s.translator.Translate(c.Request().Context(), req)
	if err != nil {
		return s.translationError(c, err)
	}

	return success(c, translateResponse{
		TranslatedText: result.TranslatedText,
		Confidence:     result.Confidence,
		Path:           string(result.PathUsed),
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	return success(c, s.status())
}

func (s *Server) handleMode(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}

	var in modeRequest
	if err := decodeValidated(raw, modeSchema, &in); err != nil {
		return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	s.translator.SetModePreference(in.PreferOnline)
	return success(c, s.status())
}

func (s *Server) handleWarmup(c echo.Context) error {
	return s.engineAction(c, s.translator.Warmup)
}

func (s *Server) handleRetry(c echo.Context) error {
	return s.engineAction(c, s.translator.Retry)
}

func (s *Server) engineAction(c echo.Context, action func(context.Context) error) error {
	if err := action(c.Request().Context()); err != nil {
		s.logger.Warn().Err(err).Msg("offline engine action failed")
		return failure(c, http.StatusServiceUnavailable, err.Error())
	}
	return success(c, s.status())
}

func (s *Server) status() statusResponse {
	return statusResponse{
		Engine:       s.translator.CurrentEngineState().String(),
		Reachable:    s.translator.CurrentConnectivity(),
		PreferOnline: s.translator.ModePreference(),
	}
}

// translationError maps the error taxonomy onto HTTP status codes.
func (s *Server) translationError(c echo.Context, err error) error {
	var (
		invalid     *translation.InvalidRequestError
		noConn      *translation.NoConnectivityError
		unavailable *translation.TranslationUnavailableError
		engine      *translation.EngineUnavailableError
	)

	switch {
	case errors.As(err, &invalid):
		return fail(c, http.StatusBadRequest, invalid.Reason, nil)
	case errors.As(err, &noConn):
		return fail(c, http.StatusConflict, err.Error(), nil)
	case errors.As(err, &unavailable), errors.As(err, &engine):
		s.logger.Warn().Err(err).Msg("translation unavailable")
		return failure(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return failure(c, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.Warn().Err(err).Msg("translation failed")
		return failure(c, http.StatusBadGateway, err.Error())
	}
}

// Copyright 2024-2026 Aiku AI

package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aiku/khanterbridge/pkg/connector"
)

type bridgeRequest struct {
	TelegramID *int64 `json:"telegram_id"`
}

type bridgeResponse struct {
	ChannelID  string `json:"channel_id"`
	TelegramID int64  `json:"telegram_id"`
}

type aliasRequest struct {
	ChannelID string `json:"channel_id"`
}

type aliasResponse struct {
	Alias     string `json:"alias"`
	ChannelID string `json:"channel_id"`
}

type offsetResponse struct {
	Offset int64 `json:"offset"`
}

type modulesResponse struct {
	Loaded    []string `json:"loaded"`
	Available []string `json:"available"`
}

func (s *Server) storageError(err error) error {
	s.log.Error().Err(err).Msg("Admin API storage failure")
	return &echo.HTTPError{Code: http.StatusInternalServerError, Message: "storage failure", Internal: err}
}

// channelParam resolves the :channel path parameter like the chat commands
// do: mentions are unwrapped and aliases resolved.
func (s *Server) channelParam(c echo.Context) (string, error) {
	ref := connector.ParseChannelRef(c.Param("channel"))
	if ref == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "missing channel")
	}
	return s.aliases.Resolve(ref), nil
}

func (s *Server) listBridges(c echo.Context) error {
	return c.JSON(http.StatusOK, s.bridges.List())
}

func (s *Server) putBridge(c echo.Context) error {
	channelID, err := s.channelParam(c)
	if err != nil {
		return err
	}
	var req bridgeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.TelegramID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "telegram_id is required")
	}
	if err := s.bridges.Add(channelID, *req.TelegramID); err != nil {
		return s.storageError(err)
	}
	return c.JSON(http.StatusOK, bridgeResponse{ChannelID: channelID, TelegramID: *req.TelegramID})
}

func (s *Server) deleteBridge(c echo.Context) error {
	channelID, err := s.channelParam(c)
	if err != nil {
		return err
	}
	if _, ok := s.bridges.ForwardLookup(channelID); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no bridge for channel "+channelID)
	}
	if err := s.bridges.Remove(channelID); err != nil {
		return s.storageError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listAliases(c echo.Context) error {
	return c.JSON(http.StatusOK, s.aliases.List())
}

func (s *Server) putAlias(c echo.Context) error {
	alias := strings.TrimSpace(c.Param("alias"))
	var req aliasRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	target := connector.ParseChannelRef(req.ChannelID)
	if alias == "" || target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "alias and channel_id are required")
	}
	if err := s.aliases.Set(alias, target); err != nil {
		return s.storageError(err)
	}
	return c.JSON(http.StatusOK, aliasResponse{Alias: alias, ChannelID: target})
}

func (s *Server) getOffset(c echo.Context) error {
	return c.JSON(http.StatusOK, offsetResponse{Offset: s.cursor.Get()})
}

func (s *Server) resetOffset(c echo.Context) error {
	if err := s.cursor.Reset(); err != nil {
		return s.storageError(err)
	}
	return c.JSON(http.StatusOK, offsetResponse{Offset: 0})
}

func (s *Server) listModules(c echo.Context) error {
	resp := modulesResponse{Loaded: []string{}, Available: []string{}}
	if s.modules != nil {
		resp.Loaded = append(resp.Loaded, s.modules.ListLoaded()...)
		resp.Available = append(resp.Available, s.modules.ListAvailable()...)
	}
	return c.JSON(http.StatusOK, resp)
}

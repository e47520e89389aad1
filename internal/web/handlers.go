package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/report"
	"github.com/user/netmon/internal/util"
)

const (
	defaultTarget = "google.com"
	maxBodyBytes  = 64 << 10
)

var errNoUser = errors.New("missing or invalid X-User-ID")

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// withUser resolves the caller from X-User-ID. Authentication happens
// upstream; this only requires the id to be present and positive.
func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get("X-User-ID")), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, errNoUser, http.StatusUnauthorized)
			return
		}
		h(w, r, id)
	}
}

// stringField reads an optional string field from a JSON body. An empty
// body or missing field yields def.
func (s *Server) stringField(r *http.Request, key, def string) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return def, nil
	}

	p := s.parser.Get()
	defer s.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return "", err
	}
	if v.Type() != fastjson.TypeObject {
		return "", fmt.Errorf("request body must be a JSON object")
	}
	if val := strings.TrimSpace(string(v.GetStringBytes(key))); val != "" {
		return val, nil
	}
	return def, nil
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request, userID int64) {
	target, err := s.stringField(r, "target", defaultTarget)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	result, err := s.svc.ProbeLatency(r.Context(), target, userID)
	if errors.Is(err, model.ErrEmptyTarget) {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if err != nil {
		util.Error("Ping %s for user %d: %v", target, userID, err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request, userID int64) {
	url, err := s.stringField(r, "url", defaultTarget)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	result, err := s.svc.CheckUptime(r.Context(), url, userID)
	if err != nil {
		util.Error("Uptime %s for user %d: %v", url, userID, err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleBandwidth(w http.ResponseWriter, r *http.Request, userID int64) {
	sample, err := s.svc.SampleBandwidth(r.Context(), userID)
	if err != nil {
		util.Error("Bandwidth for user %d: %v", userID, err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, sample)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request, _ int64) {
	writeJSON(w, s.svc.ScanDevices(r.Context()))
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request, _ int64) {
	writeJSON(w, s.svc.Identity(r.Context()))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request, userID int64) {
	kind, err := model.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		if limit, err = strconv.Atoi(q); err != nil || limit < 0 || limit > kind.Window() {
			writeError(w, fmt.Errorf("invalid limit %q", q), http.StatusBadRequest)
			return
		}
	}

	entries, err := s.svc.RecentLogsN(r.Context(), kind, userID, limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request, userID int64) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	kind, err := model.ParseKind(name)
	if !ok || err != nil || kind == model.KindUptime {
		writeError(w, fmt.Errorf("no chart %q", r.PathValue("file")), http.StatusNotFound)
		return
	}

	entries, err := s.svc.RecentLogs(r.Context(), kind, userID)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := report.RenderChart(&buf, kind, entries); err != nil {
		if errors.Is(err, report.ErrNotEnoughData) {
			writeError(w, err, http.StatusNotFound)
			return
		}
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, userID int64) {
	gen := report.NewGenerator(s.svc.Store())
	data, err := gen.Generate(r.Context(), model.ReportOptions{UserID: userID})
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=netmon_report_%d.md", userID))
	w.Write([]byte(report.FormatMarkdown(data)))
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

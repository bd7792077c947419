package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/knowledge"
	"github.com/ppiankov/fieldscout/internal/logger"
	"github.com/ppiankov/fieldscout/internal/metrics"
	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/pipeline"
	"github.com/ppiankov/fieldscout/internal/retrieve"
	"github.com/ppiankov/fieldscout/internal/score"
	"github.com/ppiankov/fieldscout/internal/store"
	"github.com/ppiankov/fieldscout/internal/validate"
)

// Additional error codes for job and capacity states
const (
	CodeJobFailed   = "job_failed"
	CodeQueueFull   = "queue_full"
	CodeUnavailable = "unavailable"
)

// DomainInfo describes one configured domain
type DomainInfo struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Rules      []string `json:"rules"`
	Terms      int      `json:"terms"`
}

// RetrieveRequest asks for the best match of one field
type RetrieveRequest struct {
	Domain    string           `json:"domain"`
	Field     model.Field      `json:"field"`
	Documents []model.Document `json:"documents"`
	Trace     bool             `json:"trace,omitempty"`
}

// RetrieveResponse is the outcome, plus the evaluated strategies when traced
type RetrieveResponse struct {
	model.Outcome
	Trace []retrieve.Attempt `json:"trace,omitempty"`
}

// RankRequest asks for the documents most relevant to a field
type RankRequest struct {
	Domain    string           `json:"domain"`
	Field     model.Field      `json:"field"`
	Documents []model.Document `json:"documents"`
	TopK      int              `json:"top_k,omitempty"`
}

// RankResponse lists ranked documents, best first
type RankResponse struct {
	FieldName string                 `json:"field_name"`
	Documents []model.RankedDocument `json:"documents"`
}

// DisambiguateRequest picks the candidate name closest to a field name
type DisambiguateRequest struct {
	FieldName  string   `json:"field_name"`
	Candidates []string `json:"candidates"`
}

// DisambiguateResponse carries the chosen candidate, if any
type DisambiguateResponse struct {
	Match string `json:"match,omitempty"`
	Found bool   `json:"found"`
}

// ValidateRequest validates an already filled form
type ValidateRequest struct {
	Domain string            `json:"domain"`
	Form   map[string]string `json:"form"`
}

// ValidateResponse holds per-field, cross-field and compliance findings
type ValidateResponse struct {
	Domain     string                              `json:"domain"`
	Fields     []model.ValidationResult            `json:"fields"`
	CrossField []model.ValidationResult            `json:"cross_field"`
	Compliance map[string][]model.ValidationResult `json:"compliance"`
}

// JobList is a page of jobs
type JobList struct {
	Jobs []model.Job `json:"jobs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleDomains(w http.ResponseWriter, _ *http.Request) {
	domains := domain.All()
	out := make([]DomainInfo, 0, len(domains))
	for _, d := range domains {
		p := domain.ProfileFor(d)
		info := DomainInfo{Name: d.String(), Categories: groupNames(p.Categories), Rules: groupNames(p.Rules)}
		if kb := knowledge.For(d); kb != nil {
			info.Terms = len(kb.Terms())
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !decode(w, r, &req) {
		return
	}
	d, ok := s.checkSingle(w, r, req.Domain, req.Field, req.Documents)
	if !ok {
		return
	}

	match, attempts := s.filler.Retriever(d).Trace(req.Field, req.Documents)
	resp := RetrieveResponse{Outcome: model.Outcome{Field: req.Field, Match: match}}
	if match == nil {
		resp.NoMatch = model.NewNoMatch(req.Field.Name)
		metrics.ObserveRetrieval(d.String(), "", 0)
	} else {
		metrics.ObserveRetrieval(d.String(), string(match.MatchType), match.ConfidenceScore)
	}
	if req.Trace {
		resp.Trace = attempts
	}

	logger.FromContext(r.Context()).Debug("field retrieved",
		zap.String("domain", d.String()),
		zap.String("field", req.Field.Name),
		zap.Bool("matched", match != nil),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if !decode(w, r, &req) {
		return
	}
	d, ok := s.checkSingle(w, r, req.Domain, req.Field, req.Documents)
	if !ok {
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "top_k must not be negative")
		return
	}

	ranked := s.filler.Retriever(d).Rank(req.Field, req.Documents, req.TopK)
	if ranked == nil {
		ranked = []model.RankedDocument{}
	}
	writeJSON(w, http.StatusOK, RankResponse{FieldName: req.Field.Name, Documents: ranked})
}

func (s *Server) handleDisambiguate(w http.ResponseWriter, r *http.Request) {
	var req DisambiguateRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FieldName) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidField, "field_name is required")
		return
	}
	match, found := score.Disambiguate(req.FieldName, req.Candidates)
	writeJSON(w, http.StatusOK, DisambiguateResponse{Match: match, Found: found})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := domain.Parse(req.Domain)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	engine := validate.NewEngine(d)
	form := validate.Form(req.Form)

	names := make([]string, 0, len(form))
	for name := range form {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ValidateResponse{Domain: d.String(), Fields: make([]model.ValidationResult, 0, len(names))}
	for _, name := range names {
		value := form[name]
		resp.Fields = append(resp.Fields, engine.ValidateField(name, &value))
	}
	resp.CrossField = engine.ValidateCrossFields(form)
	resp.Compliance = engine.CheckCompliance(form)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	var req pipeline.FillRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.checkDocumentCount(w, req.Documents) {
		return
	}
	report, err := s.filler.Fill(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "async jobs are disabled")
		return
	}
	var req pipeline.FillRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.checkDocumentCount(w, req.Documents) {
		return
	}
	if _, err := req.Validate(); err != nil {
		s.handleError(w, r, err)
		return
	}

	job, err := s.dispatcher.Enqueue(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if job.Status == model.JobFailed {
		writeError(w, http.StatusServiceUnavailable, CodeQueueFull, job.Error)
		return
	}

	w.Header().Set("Location", "/v1/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.JobFilter{
		Status: model.JobStatus(q.Get("status")),
		Domain: q.Get("domain"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid offset")
		return
	}

	jobs, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	for i := range jobs {
		jobs[i].Report = nil
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	writeJSON(w, http.StatusOK, JobList{Jobs: jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	job.Report = nil
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	switch job.Status {
	case model.JobCompleted:
		writeJSON(w, http.StatusOK, job.Report)
	case model.JobFailed:
		writeError(w, http.StatusConflict, CodeJobFailed, job.Error)
	default:
		writeError(w, http.StatusConflict, CodeJobNotReady, "job is "+string(job.Status))
	}
}

func (s *Server) handleJobHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	history, err := s.store.History(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if history == nil {
		history = []store.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleRememberField(w http.ResponseWriter, r *http.Request) {
	var m store.FieldMapping
	if !decode(w, r, &m) {
		return
	}
	d, err := domain.Parse(m.Domain)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if strings.TrimSpace(m.FieldName) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidField, "field_name is required")
		return
	}
	m.Domain = d.String()
	if err := s.store.RememberField(r.Context(), m); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecallField(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := domain.Parse(q.Get("domain"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	m, err := s.store.RecallField(r.Context(), d.String(), q.Get("field"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, CodeMappingNotFound, "no mapping for field "+strconv.Quote(q.Get("field")))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// checkSingle validates a single-field request and resolves its domain
func (s *Server) checkSingle(w http.ResponseWriter, r *http.Request, rawDomain string, field model.Field, docs []model.Document) (domain.Domain, bool) {
	if !s.checkDocumentCount(w, docs) {
		return "", false
	}
	req := pipeline.FillRequest{Domain: rawDomain, Fields: []model.Field{field}, Documents: docs}
	d, err := req.Validate()
	if err != nil {
		s.handleError(w, r, err)
		return "", false
	}
	return d, true
}

func (s *Server) checkDocumentCount(w http.ResponseWriter, docs []model.Document) bool {
	if s.cfg.MaxDocuments > 0 && len(docs) > s.cfg.MaxDocuments {
		writeError(w, http.StatusBadRequest, CodeTooManyDocuments,
			"at most "+strconv.Itoa(s.cfg.MaxDocuments)+" documents per request")
		return false
	}
	return true
}

func groupNames(groups []domain.KeywordGroup) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

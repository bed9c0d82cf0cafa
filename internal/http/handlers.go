package http

import (
	"context"
	"net/http"
	"strconv"

	"omzet/internal/export"
	"omzet/internal/log"
	"omzet/internal/report"
)

// handleReady reports whether a snapshot can currently be served.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if err := s.svc.Ready(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Not ready", log.FieldError, err)
		UnavailableError("not ready").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// query resolves the request's dashboard query against the defaults of
// the current snapshot.
func (s *Server) query(ctx context.Context, r *http.Request) (report.Query, error) {
	defaults, err := s.svc.DefaultQuery(ctx)
	if err != nil {
		return report.Query{}, err
	}
	return ParseDashboardQuery(r.URL.Query(), defaults)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	q, err := s.query(ctx, r)
	if err != nil {
		serviceError(ctx, log.OpFilter, err).Write(w)
		return
	}
	d, err := s.svc.Dashboard(ctx, q)
	if err != nil {
		serviceError(ctx, log.OpFilter, err).Write(w)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentDashboard).DebugContext(ctx, "Dashboard built",
		log.NewFields().WithQuery(d.Start, d.End, d.Categories).ToSlice()...)
	NewJSONResponse().NoStore().Payload(d).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	cats, err := s.svc.Categories(ctx)
	if err != nil {
		serviceError(ctx, log.OpLoad, err).Write(w)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	NewJSONResponse().Payload(map[string][]string{"categories": cats}).Write(w)
}

// handleRefresh re-queries the record source. 202 signals that a
// background re-import was also requested.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.svc.Refresh(ctx)
	if err != nil {
		serviceError(ctx, log.OpRefresh, err).Write(w)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Snapshot refreshed",
		log.NewFields().WithBatch(res.Source, res.Records, res.Rejected).WithOperation(log.OpRefresh).ToSlice()...)

	status := http.StatusOK
	if res.RequestID != "" {
		status = http.StatusAccepted
	}
	NewJSONResponse().Status(status).NoStore().Payload(res).Write(w)
}

func (s *Server) handleExport(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()

		q, err := s.query(ctx, r)
		if err != nil {
			serviceError(ctx, log.OpExport, err).Write(w)
			return
		}
		d, err := s.svc.Dashboard(ctx, q)
		if err != nil {
			serviceError(ctx, log.OpExport, err).Write(w)
			return
		}

		exporter, err := s.exports.Exporter(format)
		if err != nil {
			serviceError(ctx, log.OpExport, err).Write(w)
			return
		}
		body, contentType, err := s.exports.Export(report.ToExport(d, s.title, s.now()), format)
		if err != nil {
			serviceError(ctx, log.OpExport, err).Write(w)
			return
		}

		name := export.Filename("omzet", d.Start+"_"+d.End, exporter)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)

		log.FromContext(ctx).WithComponent(log.ComponentExport).InfoContext(ctx, "Export written",
			log.FieldFormat, string(format), "bytes", len(body), "rows", len(d.Table.Rows))
	}
}

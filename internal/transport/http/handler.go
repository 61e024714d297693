package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"tradeindex/internal/aggregate"
	"tradeindex/internal/analytics"
	"tradeindex/internal/model"
	"tradeindex/internal/priceindex"
)

// AnalyticsService is the query surface served over HTTP.
type AnalyticsService interface {
	Aggregate(ctx context.Context, q analytics.Query) ([]model.AggregatedRecord, error)
	PriceIndex(ctx context.Context, agricultureOnly bool) ([]model.PriceRecord, error)
	Movers(ctx context.Context, records []model.PriceRecord) (priceindex.Movers, error)
	CountryShares(ctx context.Context, q analytics.Query, metric aggregate.Metric) ([]aggregate.CountryShare, error)
}

type Handler struct {
	service AnalyticsService
	log     *logrus.Entry
}

func NewHandler(service AnalyticsService, logger *logrus.Logger) *Handler {
	return &Handler{
		service: service,
		log:     logger.WithField("component", "http"),
	}
}

// Routes returns the analytics routes, mounted under /api by NewRouter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/aggregate", h.GetAggregate)
	r.Get("/price-index", h.GetPriceIndex)
	r.Get("/movers", h.GetMovers)
	r.Get("/country-shares", h.GetCountryShares)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type aggregateResponse struct {
	Level     model.Level              `json:"level"`
	TimeFrame model.TimeFrame          `json:"time_frame"`
	Rows      []model.AggregatedRecord `json:"rows"`
}

type sharesResponse struct {
	Metric aggregate.Metric         `json:"metric"`
	Shares []aggregate.CountryShare `json:"shares"`
}

func (h *Handler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.service.Aggregate(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, aggregateResponse{Level: q.Level, TimeFrame: q.TimeFrame, Rows: rows})
}

func (h *Handler) GetPriceIndex(w http.ResponseWriter, r *http.Request) {
	agri, err := parseBool(r, "agriculture")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.service.PriceIndex(r.Context(), agri)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, rows)
}

func (h *Handler) GetMovers(w http.ResponseWriter, r *http.Request) {
	agri, err := parseBool(r, "agriculture")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.service.PriceIndex(r.Context(), agri)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	movers, err := h.service.Movers(r.Context(), rows)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, movers)
}

func (h *Handler) GetCountryShares(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	metric := aggregate.Metric(strings.ToLower(r.URL.Query().Get("metric")))
	if metric == "" {
		metric = aggregate.MetricImports
	}
	shares, err := h.service.CountryShares(r.Context(), q, metric)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, sharesResponse{Metric: metric, Shares: shares})
}

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

func parseQuery(r *http.Request) (analytics.Query, error) {
	values := r.URL.Query()
	q := analytics.Query{
		Level:      model.ParseLevel(values.Get("level")),
		TimeFrame:  model.ParseTimeFrame(values.Get("time_frame")),
		Date:       dateParam(values.Get("date")),
		CodePrefix: values.Get("prefix"),
	}
	if q.Level == "" {
		q.Level = model.LevelTotal
	}
	if q.TimeFrame == "" {
		q.TimeFrame = model.TimeYearly
	}
	if feed := values.Get("feed"); feed != "" {
		parsed, err := model.ParseFeed(feed)
		if err != nil {
			return analytics.Query{}, errors.Join(errBadRequest, err)
		}
		q.Feed = parsed
	}
	var err error
	if q.AgricultureOnly, err = parseBool(r, "agriculture"); err != nil {
		return analytics.Query{}, err
	}
	if q.Group, err = parseBool(r, "group"); err != nil {
		return analytics.Query{}, err
	}
	return q, nil
}

// dateParam restores the '+' of a start+end range that query decoding
// turned into a space.
func dateParam(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), " ", "+")
}

func parseBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Join(errBadRequest, err)
	}
	return v, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, aggregate.ErrInvalidCombination),
		errors.Is(err, aggregate.ErrInvalidFilterValue),
		errors.Is(err, aggregate.ErrMalformedDateFilter),
		errors.Is(err, analytics.ErrUnknownFeed):
		return http.StatusBadRequest
	case errors.Is(err, aggregate.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := h.log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
		"status":     status,
	}).WithError(err)
	if status == http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/model"
)

type offerRequest struct {
	Title       string          `json:"title"`
	MilesAmount int64           `json:"milesAmount"`
	Price       decimal.Decimal `json:"price"`
	Type        model.OfferType `json:"type"`
	AirlineID   int64           `json:"airlineId"`
}

type offerPatchRequest struct {
	Title       *string          `json:"title"`
	MilesAmount *int64           `json:"milesAmount"`
	Price       *decimal.Decimal `json:"price"`
	Type        *model.OfferType `json:"type"`
	AirlineID   *int64           `json:"airlineId"`
}

// ListAirlines возвращает справочник авиакомпаний.
func (h *Handler) ListAirlines(w http.ResponseWriter, r *http.Request) {
	airlines, err := h.service.ListAirlines(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if airlines == nil {
		airlines = []model.Airline{}
	}
	writeJSON(w, http.StatusOK, airlines)
}

func writeOfferPage(w http.ResponseWriter, p *model.OfferPage) {
	writeJSON(w, http.StatusOK, newPageResponse(p.Items, newOfferResponse, p.Page, p.Size, p.Total, p.TotalPages))
}

// ListOffers возвращает публичную ленту активных предложений.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	filter, err := offerFilterFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sort := model.OfferSort{Key: model.OfferSortKey(r.URL.Query().Get("sort"))}
	switch r.URL.Query().Get("order") {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		h.writeError(w, r, apperr.Validation("order must be asc or desc"))
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ListOffers(r.Context(), filter, sort, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOfferPage(w, res)
}

func offerFilterFromQuery(r *http.Request) (model.OfferFilter, error) {
	q := r.URL.Query()
	var f model.OfferFilter

	parseInt := func(name string) (*int64, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperr.Validation("invalid %s", name)
		}
		return &v, nil
	}
	parseDecimal := func(name string) (*decimal.Decimal, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, apperr.Validation("invalid %s", name)
		}
		return &v, nil
	}

	var err error
	if f.AirlineID, err = parseInt("airlineId"); err != nil {
		return f, err
	}
	if f.MinMiles, err = parseInt("minMiles"); err != nil {
		return f, err
	}
	if f.MaxMiles, err = parseInt("maxMiles"); err != nil {
		return f, err
	}
	if f.MinPrice, err = parseDecimal("minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parseDecimal("maxPrice"); err != nil {
		return f, err
	}
	if raw := q.Get("type"); raw != "" {
		t := model.OfferType(raw)
		f.Type = &t
	}
	return f, nil
}

// GetOffer возвращает предложение по идентификатору.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.service.GetOffer(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOfferResponse(o))
}

// ListMyOffers возвращает предложения текущего пользователя во всех статусах.
func (h *Handler) ListMyOffers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ListMyOffers(r.Context(), currentUser(r), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOfferPage(w, res)
}

// CreateOffer создаёт предложение текущего пользователя.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.service.CreateOffer(r.Context(), currentUser(r), model.OfferInput{
		Title:       req.Title,
		MilesAmount: req.MilesAmount,
		Price:       req.Price,
		Type:        req.Type,
		AirlineID:   req.AirlineID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOfferResponse(o))
}

// UpdateOffer частично изменяет активное предложение владельца.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req offerPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.service.UpdateOffer(r.Context(), id, currentUser(r), model.OfferPatch{
		Title:       req.Title,
		MilesAmount: req.MilesAmount,
		Price:       req.Price,
		Type:        req.Type,
		AirlineID:   req.AirlineID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOfferResponse(o))
}

// CancelOffer снимает предложение владельца с продажи.
func (h *Handler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.service.CancelOffer(r.Context(), id, currentUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOfferResponse(o))
}

// Purchase покупает предложение от имени текущего пользователя.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := h.service.Purchase(r.Context(), currentUser(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionResponse(t))
}

// Package catalog provides the HTTP handlers and business logic for
// registering items, reporting prices, voting on price credibility, and
// querying optimal shopping allocations.
//
// All prices use shopspring/decimal — never float64 for money.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/grocerybuddies/price-engine/internal/ledger"
	"github.com/grocerybuddies/price-engine/internal/metrics"
	"github.com/grocerybuddies/price-engine/internal/model"
	"github.com/grocerybuddies/price-engine/internal/optimize"
	"github.com/grocerybuddies/price-engine/internal/store"
	"github.com/grocerybuddies/price-engine/internal/vote"
)

// Client-facing error strings. These are wire contract: the mobile app
// matches on them.
const (
	msgMissingFields    = "Missing required fields"
	msgItemDNE          = "Item does not exist in database"
	msgItemExists       = "Item already exists in database"
	msgStoreDNE         = "Store does not exist in database"
	msgInvalidDir       = "Invalid vote direction"
	msgAlreadyUpvoted   = "User has already upvoted"
	msgAlreadyDownvoted = "User has already downvoted"
	msgNotVoted         = "User has not voted, cannot undo"
	msgBadJSON          = "Could not parse JSON body"
	msgNoUPCs           = "No UPCs provided"
	msgSomeNotFound     = "Some UPCs provided were not found in the database"
	msgNoCoveringStore  = "No store carries any of the requested items"
)

// Service handles catalog operations. Mutations follow a load-mutate-save
// cycle guarded by the store's optimistic concurrency: a version conflict
// triggers a reload and re-apply, bounded by maxRetries.
type Service struct {
	store      store.Store
	validate   *validator.Validate
	feed       *FeedHub // optional WebSocket hub for price-feed broadcasts
	maxRetries int
}

// DefaultSaveRetries bounds the load-mutate-save cycle when no explicit
// retry count is configured.
const DefaultSaveRetries = 3

// NewService creates a new catalog service.
// Pass nil for hub if WebSocket broadcasting is not needed, and a
// non-positive saveRetries to use DefaultSaveRetries.
func NewService(st store.Store, hub *FeedHub, saveRetries int) *Service {
	if saveRetries <= 0 {
		saveRetries = DefaultSaveRetries
	}
	return &Service{
		store:      st,
		validate:   validator.New(),
		feed:       hub,
		maxRetries: saveRetries,
	}
}

// --- Request/Response types ---

// Pointer fields distinguish "absent" from legitimate zero values:
// lat=0, long=0, and dir=0 are all valid inputs.

// AddItemRequest is the JSON body for POST /item.
type AddItemRequest struct {
	Name  string           `json:"name" validate:"required"`
	UPC   string           `json:"upc" validate:"required"`
	Price *decimal.Decimal `json:"price" validate:"required"`
	User  string           `json:"user" validate:"required"`
	Store string           `json:"store" validate:"required"`
	Lat   *decimal.Decimal `json:"lat" validate:"required"`
	Long  *decimal.Decimal `json:"long" validate:"required"`
}

// AddPriceRequest is the JSON body for POST /price.
type AddPriceRequest struct {
	UPC   string           `json:"upc" validate:"required"`
	Price *decimal.Decimal `json:"price" validate:"required"`
	User  string           `json:"user" validate:"required"`
	Store string           `json:"store" validate:"required"`
	Lat   *decimal.Decimal `json:"lat" validate:"required"`
	Long  *decimal.Decimal `json:"long" validate:"required"`
}

// VoteRequest is the JSON body for POST /vote.
type VoteRequest struct {
	UPC   string           `json:"upc" validate:"required"`
	User  string           `json:"user" validate:"required"`
	Store string           `json:"store" validate:"required"`
	Lat   *decimal.Decimal `json:"lat" validate:"required"`
	Long  *decimal.Decimal `json:"long" validate:"required"`
	Dir   *int             `json:"dir" validate:"required"`
}

// OptimalStoreRequest is the JSON body for POST /optimal_store.
type OptimalStoreRequest struct {
	SingleStore *bool    `json:"single_store" validate:"required"`
	Items       []string `json:"items"`
}

// StatusResponse is the {success, error} envelope shared by all mutations.
type StatusResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// StoreDescriptor is the reconstructed display form of a store key.
type StoreDescriptor struct {
	Name     string         `json:"name"`
	Location model.Location `json:"location"`
}

// AllocationEntry pairs a store with the basket items assigned to it.
type AllocationEntry struct {
	Store StoreDescriptor `json:"store"`
	UPCs  []string        `json:"upcs"`
	Price decimal.Decimal `json:"price"`
}

// OptimalStoreResponse is the JSON body returned from POST /optimal_store.
// Error may carry a non-fatal advisory alongside Success=true when some
// requested UPCs were unknown. Unresolved lists UPCs that exist in the
// catalog but have no supplying store — they never appear in an allocation.
type OptimalStoreResponse struct {
	Success       bool              `json:"success"`
	Error         *string           `json:"error"`
	OptimalPrices []AllocationEntry `json:"optimal_prices"`
	Unresolved    []string          `json:"unresolved_upcs,omitempty"`
}

// SearchResponse is the JSON body returned from GET /search.
type SearchResponse struct {
	Success bool                `json:"success"`
	Error   *string             `json:"error"`
	Items   []model.CatalogItem `json:"items"`
}

// --- HTTP Handlers ---

// AddItem handles POST /item.
// Registers a new catalog item with an initial listing and price quote.
func (s *Service) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, msgBadJSON)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeFailure(w, msgMissingFields)
		return
	}

	item := &model.CatalogItem{UPC: req.UPC, Name: req.Name}
	loc := model.Location{Lat: *req.Lat, Long: *req.Long}
	ledger.SubmitPrice(item, req.Store, loc, req.User, *req.Price, time.Now().UTC())

	if err := s.store.CreateItem(r.Context(), item); err != nil {
		switch {
		case errors.Is(err, store.ErrItemExists):
			writeFailure(w, msgItemExists)
		case errors.Is(err, model.ErrValidation):
			writeFailure(w, err.Error())
		default:
			writeFault(w, "failed to create item", err)
		}
		return
	}

	slog.Info("item registered", "upc", req.UPC, "name", req.Name, "store", req.Store)
	writeSuccess(w)
}

// AddPrice handles POST /price.
// Appends a price quote to the matching listing, creating the listing if
// this store has never carried the item.
func (s *Service) AddPrice(w http.ResponseWriter, r *http.Request) {
	var req AddPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, msgBadJSON)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeFailure(w, msgMissingFields)
		return
	}

	loc := model.Location{Lat: *req.Lat, Long: *req.Long}
	var createdListing bool
	err := s.mutateItem(r.Context(), req.UPC, func(item *model.CatalogItem) error {
		createdListing = ledger.SubmitPrice(item, req.Store, loc, req.User, *req.Price, time.Now().UTC())
		return nil
	})
	if err != nil {
		s.writeMutationError(w, err)
		return
	}

	metrics.PricesSubmitted.WithLabelValues(boolLabel(createdListing)).Inc()
	slog.Info("price reported",
		"upc", req.UPC,
		"store", req.Store,
		"price", req.Price.String(),
		"user", req.User,
		"new_listing", createdListing,
	)

	if s.feed != nil {
		s.feed.Broadcast(FeedMessage{
			Type:  "price_reported",
			UPC:   req.UPC,
			Store: req.Store,
			Lat:   req.Lat.String(),
			Long:  req.Long.String(),
			Price: req.Price.String(),
		})
	}

	writeSuccess(w)
}

// Vote handles POST /vote.
// Applies an up/down/undo vote to the latest quote of the matching listing.
func (s *Service) Vote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, msgBadJSON)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeFailure(w, msgMissingFields)
		return
	}

	dir, err := vote.FromInt(*req.Dir)
	if err != nil {
		writeFailure(w, msgInvalidDir)
		return
	}

	loc := model.Location{Lat: *req.Lat, Long: *req.Long}
	err = s.mutateItem(r.Context(), req.UPC, func(item *model.CatalogItem) error {
		listing := item.FindListing(req.Store, loc)
		if listing == nil {
			return errStoreNotFound
		}
		latest := listing.LatestQuote()
		if latest == nil {
			return errStoreNotFound
		}
		return vote.Apply(latest, req.User, dir)
	})
	if err != nil {
		if isVoteRejection(err) {
			metrics.VoteRejections.Inc()
		}
		s.writeMutationError(w, err)
		return
	}

	metrics.VotesApplied.WithLabelValues(directionLabel(dir)).Inc()
	slog.Info("vote applied",
		"upc", req.UPC,
		"store", req.Store,
		"user", req.User,
		"dir", *req.Dir,
	)

	if s.feed != nil {
		s.feed.Broadcast(FeedMessage{
			Type:      "vote_applied",
			UPC:       req.UPC,
			Store:     req.Store,
			Lat:       req.Lat.String(),
			Long:      req.Long.String(),
			Direction: directionLabel(dir),
		})
	}

	writeSuccess(w)
}

// OptimalStore handles POST /optimal_store.
// Computes either the single best-covering store or the per-item
// cheapest-store split for the requested basket.
func (s *Service) OptimalStore(w http.ResponseWriter, r *http.Request) {
	var req OptimalStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, OptimalStoreResponse{Error: strptr(msgBadJSON)})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusOK, OptimalStoreResponse{Error: strptr(msgMissingFields)})
		return
	}
	if req.Items == nil {
		writeJSON(w, http.StatusOK, OptimalStoreResponse{Error: strptr(msgNoUPCs)})
		return
	}

	basket, notFound, unresolved, err := s.buildBasket(r.Context(), req.Items)
	if err != nil {
		writeFault(w, "failed to load basket items", err)
		return
	}

	var advisory *string
	if len(notFound) > 0 {
		advisory = strptr(msgSomeNotFound)
	}

	var entries []AllocationEntry
	if *req.SingleStore {
		metrics.OptimalQueries.WithLabelValues("single").Inc()
		alloc, err := optimize.SelectSingleStore(basket)
		if errors.Is(err, optimize.ErrNoCoveringStore) {
			writeJSON(w, http.StatusOK, OptimalStoreResponse{
				Error:      strptr(msgNoCoveringStore),
				Unresolved: unresolved,
			})
			return
		}
		entries = []AllocationEntry{toEntry(alloc)}
	} else {
		metrics.OptimalQueries.WithLabelValues("multi").Inc()
		allocations := optimize.SelectPerItem(basket)
		entries = make([]AllocationEntry, 0, len(allocations))
		for _, alloc := range allocations {
			entries = append(entries, toEntry(alloc))
		}
	}

	writeJSON(w, http.StatusOK, OptimalStoreResponse{
		Success:       true,
		Error:         advisory,
		OptimalPrices: entries,
		Unresolved:    unresolved,
	})
}

// Search handles GET /search?keyword=.
// Case-insensitive substring match on item names.
func (s *Service) Search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		writeJSON(w, http.StatusOK, SearchResponse{Error: strptr(msgMissingFields)})
		return
	}

	items, err := s.store.SearchItems(r.Context(), keyword)
	if err != nil {
		writeFault(w, "search failed", err)
		return
	}
	if items == nil {
		items = []model.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Success: true, Items: items})
}

// --- Internals ---

// errStoreNotFound marks a (name, location) miss inside a loaded item.
var errStoreNotFound = errors.New("catalog: store not found on item")

// buildBasket loads each distinct requested UPC and collects its
// (store, latest price) candidates. UPCs without a catalog entry go to
// notFound; UPCs that resolve but have no supplying store go to unresolved.
// Only infrastructure failures produce an error.
func (s *Service) buildBasket(ctx context.Context, upcs []string) (optimize.Basket, []string, []string, error) {
	basket := make(optimize.Basket)
	var notFound, unresolved []string
	seen := make(map[string]struct{}, len(upcs))

	for _, upc := range upcs {
		if _, dup := seen[upc]; dup {
			continue
		}
		seen[upc] = struct{}{}

		item, err := s.store.GetItem(ctx, upc)
		if errors.Is(err, store.ErrItemNotFound) {
			notFound = append(notFound, upc)
			continue
		}
		if err != nil {
			return nil, nil, nil, err
		}

		prices := optimize.ListingPrices(item)
		if len(prices) == 0 {
			unresolved = append(unresolved, upc)
			continue
		}
		basket[upc] = prices
	}
	return basket, notFound, unresolved, nil
}

// mutateItem runs the load-mutate-save cycle with bounded retries on
// optimistic-concurrency conflicts.
func (s *Service) mutateItem(ctx context.Context, upc string, mutate func(*model.CatalogItem) error) error {
	for attempt := 0; ; attempt++ {
		item, err := s.store.GetItem(ctx, upc)
		if err != nil {
			return err
		}
		if err := mutate(item); err != nil {
			return err
		}
		err = s.store.SaveItem(ctx, item)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt >= s.maxRetries {
			return err
		}
		metrics.SaveConflicts.Inc()
		slog.Warn("save conflict, retrying", "upc", upc, "attempt", attempt+1)
	}
}

// writeMutationError maps mutation failures onto the wire error strings.
// Business-rule failures stay HTTP 200 with success=false (the mobile app
// inspects the body, not the status); infrastructure faults become 5xx.
func (s *Service) writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		writeFailure(w, msgItemDNE)
	case errors.Is(err, errStoreNotFound):
		writeFailure(w, msgStoreDNE)
	case errors.Is(err, vote.ErrAlreadyUpvoted):
		writeFailure(w, msgAlreadyUpvoted)
	case errors.Is(err, vote.ErrAlreadyDownvoted):
		writeFailure(w, msgAlreadyDownvoted)
	case errors.Is(err, vote.ErrNotVoted):
		writeFailure(w, msgNotVoted)
	case errors.Is(err, vote.ErrInvalidDirection):
		writeFailure(w, msgInvalidDir)
	case errors.Is(err, model.ErrValidation):
		writeFailure(w, err.Error())
	default:
		writeFault(w, "mutation failed", err)
	}
}

func isVoteRejection(err error) bool {
	return errors.Is(err, vote.ErrAlreadyUpvoted) ||
		errors.Is(err, vote.ErrAlreadyDownvoted) ||
		errors.Is(err, vote.ErrNotVoted)
}

func toEntry(alloc optimize.Allocation) AllocationEntry {
	return AllocationEntry{
		Store: descriptorOf(alloc.Key),
		UPCs:  alloc.UPCs,
		Price: alloc.Total,
	}
}

// descriptorOf reconstructs a display store object from its canonical key.
func descriptorOf(k model.StoreKey) StoreDescriptor {
	lat, _ := decimal.NewFromString(k.Lat)
	long, _ := decimal.NewFromString(k.Long)
	return StoreDescriptor{
		Name:     k.Name,
		Location: model.Location{Lat: lat, Long: long},
	}
}

func directionLabel(dir vote.Direction) string {
	switch dir {
	case vote.Up:
		return "up"
	case vote.Down:
		return "down"
	default:
		return "undo"
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func strptr(s string) *string { return &s }

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, StatusResponse{Success: true})
}

func writeFailure(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, StatusResponse{Success: false, Error: &msg})
}

// writeFault reports an infrastructure failure. These are never masked as
// business errors.
func writeFault(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "err", err)
	writeJSON(w, http.StatusInternalServerError, StatusResponse{Success: false, Error: &msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package service

import (
	"context"
	"sort"
	"strings"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"
	"github.com/gobihapalanivel/VendorPulse/internal/util"

	"go.uber.org/zap"
)

// SortKey selects the directory column to sort on.
type SortKey string

const (
	SortByName    SortKey = "name"
	SortByScore   SortKey = "score"
	SortByOnTime  SortKey = "on_time"
	SortByStatus  SortKey = "status"
	SortByContact SortKey = "contact"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Status filter values.
const (
	StatusAll      = "all"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// DirectoryFilter is one directory query: free-text search, status
// filter, and sort selection.
type DirectoryFilter struct {
	Query     string
	Status    string
	Key       SortKey
	Direction SortDirection
}

// SortState tracks the directory's current sort column and direction.
type SortState struct {
	Key       SortKey       `json:"key"`
	Direction SortDirection `json:"direction"`
}

// DefaultSortState is the directory's initial sort: score, descending.
func DefaultSortState() SortState {
	return SortState{Key: SortByScore, Direction: SortDesc}
}

// Toggle flips the direction when the same key is selected again, and
// resets to the key's default direction otherwise.
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key == key {
		if s.Direction == SortAsc {
			return SortState{Key: key, Direction: SortDesc}
		}
		return SortState{Key: key, Direction: SortAsc}
	}
	return SortState{Key: key, Direction: DefaultDirection(key)}
}

// DefaultDirection is the direction a freshly selected key starts with:
// asc for name, desc for every other key.
func DefaultDirection(key SortKey) SortDirection {
	if key == SortByName {
		return SortAsc
	}
	return SortDesc
}

func matchesQuery(v models.Vendor, query string) bool {
	if query == "" {
		return true
	}
	for _, field := range []string{v.SupplierName, v.ContactEmail, v.PhoneNumber, v.Address} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func matchesStatus(v models.Vendor, status string) bool {
	switch status {
	case StatusActive:
		return v.IsActive
	case StatusInactive:
		return !v.IsActive
	default:
		return true
	}
}

// compare orders two vendors on the selected key: string keys
// case-insensitively, numeric keys by value, status as inactive < active.
func compare(a, b models.Vendor, key SortKey) int {
	switch key {
	case SortByName:
		return strings.Compare(strings.ToLower(a.SupplierName), strings.ToLower(b.SupplierName))
	case SortByScore:
		return compareFloat(a.Score, b.Score)
	case SortByOnTime:
		return compareFloat(a.OnTimeRate, b.OnTimeRate)
	case SortByStatus:
		return compareFloat(boolToFloat(a.IsActive), boolToFloat(b.IsActive))
	case SortByContact:
		return strings.Compare(strings.ToLower(a.ContactEmail), strings.ToLower(b.ContactEmail))
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FilterSort filters a vendor list by free-text query and status, then
// stably sorts it on the selected key. The source list is not mutated.
func FilterSort(vendors []models.Vendor, f DirectoryFilter) []models.Vendor {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	filtered := make([]models.Vendor, 0, len(vendors))
	for _, v := range vendors {
		if matchesQuery(v, query) && matchesStatus(v, f.Status) {
			filtered = append(filtered, v)
		}
	}

	factor := 1
	if f.Direction == SortDesc {
		factor = -1
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return compare(filtered[i], filtered[j], f.Key)*factor < 0
	})

	return filtered
}

// DirectoryService answers filtered, sorted directory queries.
type DirectoryService struct {
	snapshot *VendorSnapshot
	logger   *zap.Logger
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(snapshot *VendorSnapshot) *DirectoryService {
	return &DirectoryService{
		snapshot: snapshot,
		logger:   util.GetLogger(),
	}
}

// Browse fetches the vendor list and applies the filter.
func (d *DirectoryService) Browse(ctx context.Context, session *upstream.Session, f DirectoryFilter) ([]models.Vendor, error) {
	ctx, span := util.StartSpan(ctx, "DirectoryService.Browse")
	defer span.End()

	vendors, err := d.snapshot.Vendors(ctx, session)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Browsing directory",
		zap.String("query", f.Query),
		zap.String("status", f.Status),
		zap.String("sort", string(f.Key)))

	return FilterSort(vendors, f), nil
}

package aggregate

import "github.com/opt-statistics/backend/internal/models"

// Collection is a growable set of uniquely named series. Series are never removed or
// reordered; names are unique only within one collection.
type Collection struct {
	byName map[string]*models.Series
	order  []*models.Series
}

func NewCollection() *Collection {
	return &Collection{byName: make(map[string]*models.Series)}
}

// AppendOrCreate appends point to the series called name, creating it with style when it does
// not exist yet. A nil point registers the series (and its style) without data. Style is only
// applied on creation.
func (c *Collection) AppendOrCreate(name string, point *models.SeriesPoint, style models.SeriesStyle) *models.Series {
	s, ok := c.byName[name]
	if !ok {
		s = &models.Series{
			Name:   name,
			Style:  style,
			Points: make([]models.SeriesPoint, 0, 1),
		}
		c.byName[name] = s
		c.order = append(c.order, s)
	}

	if point != nil {
		s.Points = append(s.Points, *point)
	}

	return s
}

// Get returns the series called name.
func (c *Collection) Get(name string) (*models.Series, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Len returns the number of series.
func (c *Collection) Len() int {
	return len(c.order)
}

// List returns the series in creation order. The series are shared, not copied.
func (c *Collection) List() models.SeriesList {
	out := make(models.SeriesList, len(c.order))
	copy(out, c.order)
	return out
}

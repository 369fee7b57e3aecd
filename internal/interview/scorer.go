package interview

import "github.com/fadilmartias/interview-coach/internal/model"

// Grouping partitions every catalog key into exactly one bucket.
type Grouping struct {
	// Noted holds triggered keys, positive criteria first then red flags.
	Noted     []string `json:"noted"`
	Remaining []string `json:"remaining"`
	Avoid     []string `json:"avoid"`
}

// Score returns clamp(sum of triggered positive weights minus sum of
// triggered red-flag weights, 0, 100). Keys outside the catalog are ignored.
func (c *Catalog) Score(checklist model.Checklist) int {
	score := 0
	for _, cr := range c.criteria {
		if !checklist[cr.Key] {
			continue
		}
		if cr.IsRedFlag {
			score -= cr.WeightPercent
		} else {
			score += cr.WeightPercent
		}
	}
	return clamp(score, 0, 100)
}

// Group splits the catalog keys by their state in checklist.
func (c *Catalog) Group(checklist model.Checklist) Grouping {
	g := Grouping{
		Noted:     []string{},
		Remaining: []string{},
		Avoid:     []string{},
	}
	var flagged []string
	for _, cr := range c.criteria {
		triggered := checklist[cr.Key]
		switch {
		case triggered && cr.IsRedFlag:
			flagged = append(flagged, cr.Key)
		case triggered:
			g.Noted = append(g.Noted, cr.Key)
		case cr.IsRedFlag:
			g.Avoid = append(g.Avoid, cr.Key)
		default:
			g.Remaining = append(g.Remaining, cr.Key)
		}
	}
	g.Noted = append(g.Noted, flagged...)
	return g
}

// Normalize returns a checklist over exactly the catalog key set, keeping the
// observed state of known keys and dropping unknown ones.
func (c *Catalog) Normalize(checklist model.Checklist) model.Checklist {
	out := c.DefaultChecklist()
	for k, v := range checklist {
		if _, ok := out[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Apply marks the observed keys as true and returns the new checklist along
// with the keys accepted by this call. Marking is append-only: a true entry is
// never reset, and unknown keys are skipped. The input is not modified.
func (c *Catalog) Apply(checklist model.Checklist, observed []string) (model.Checklist, []string) {
	out := c.Normalize(checklist)
	accepted := []string{}
	seen := make(map[string]bool, len(observed))
	for _, key := range observed {
		if seen[key] || !c.Has(key) {
			continue
		}
		seen[key] = true
		out[key] = true
		accepted = append(accepted, key)
	}
	return out, accepted
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

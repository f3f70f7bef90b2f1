package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// RemoveComment returns a copy of comments without the comment whose ID is id.
// If no comment matches, the copy is identical to the input.
func RemoveComment(comments []Comment, id primitive.ObjectID) []Comment {
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if c.ID == id {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ToggleID adds id to set when absent and removes it when present.
// The second return value is true when id was added.
func ToggleID(set []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	if !containsID(set, id) {
		out := make([]primitive.ObjectID, 0, len(set)+1)
		out = append(out, set...)
		return append(out, id), true
	}
	out := make([]primitive.ObjectID, 0, len(set))
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out, false
}

// HexIDs renders ids as hex strings, preserving order.
func HexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

// FilterStrategyTactics narrows every strategy in AssignedStrategiesWithAllTactics to the
// tactics listed in the project's assigned tactics, and normalizes AssignedTactics to hex strings.
func (p *EnrichedProject) FilterStrategyTactics() {
	p.AssignedTactics = HexIDs(p.RawAssignedTactics)

	wanted := make(map[string]struct{}, len(p.AssignedTactics))
	for _, id := range p.AssignedTactics {
		wanted[id] = struct{}{}
	}

	for i := range p.AssignedStrategiesWithAllTactics {
		s := &p.AssignedStrategiesWithAllTactics[i]
		kept := make([]Tactic, 0, len(s.AssignedTactics))
		for _, t := range s.AssignedTactics {
			if _, ok := wanted[t.ID.Hex()]; ok {
				kept = append(kept, t)
			}
		}
		s.AssignedTactics = kept
	}
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ParseID parses a hex ObjectID, mapping failures to ErrInvalidID.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

package schedule

import "gamecal/internal/model"

// Report bundles the outputs of one snapshot computation.
type Report struct {
	Today       model.Date     `json:"today"`
	Window      []model.Date   `json:"window"`
	Order       Order          `json:"order"`
	MinPlayers  int            `json:"min_players"`
	Suggestions []Suggestion   `json:"suggestions"`
	Completion  map[string]int `json:"completion"`
}

// BuildReport runs the window, ranker and completion accumulator over the
// same inputs.
func BuildReport(in SuggestInput) (Report, error) {
	cfg := WindowFor(in.Game)
	window, err := Window(cfg, in.Today)
	if err != nil {
		return Report{}, err
	}
	suggestions, err := Suggest(in)
	if err != nil {
		return Report{}, err
	}

	ids := make([]string, 0, len(in.Players))
	for _, p := range in.Players {
		ids = append(ids, p.ID)
	}
	completion, err := Completion(ids, cfg, in.Availability, in.Today)
	if err != nil {
		return Report{}, err
	}

	order := in.Order
	if order == "" {
		order = OrderRanked
	}
	return Report{
		Today:       in.Today,
		Window:      window,
		Order:       order,
		MinPlayers:  in.MinPlayers,
		Suggestions: suggestions,
		Completion:  completion,
	}, nil
}

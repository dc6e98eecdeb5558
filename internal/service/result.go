package service

// Result is what a workflow reports back to the run tracker.
type Result struct {
	Markets     int
	Outcomes    int
	Comments    int
	Tokens      int
	PricePoints int
	Users       int
	Positions   int
	Trades      int

	Errors     []string
	ErrorCount int
	Tripped    bool
}

func (r *Result) merge(o Result) {
	r.Markets += o.Markets
	r.Outcomes += o.Outcomes
	r.Comments += o.Comments
	r.Tokens += o.Tokens
	r.PricePoints += o.PricePoints
	r.Users += o.Users
	r.Positions += o.Positions
	r.Trades += o.Trades
	r.Errors = append(r.Errors, o.Errors...)
	r.ErrorCount += o.ErrorCount
	r.Tripped = r.Tripped || o.Tripped
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.ErrorCount++
}

func (r Result) update() RunUpdate {
	return RunUpdate{
		MarketsScraped:        intPtr(r.Markets),
		MarketOutcomesScraped: intPtr(r.Outcomes),
		CommentsScraped:       intPtr(r.Comments),
		TokensProcessed:       intPtr(r.Tokens),
		PriceDataPointsStored: intPtr(r.PricePoints),
		UsersProcessed:        intPtr(r.Users),
		UserPositionsScraped:  intPtr(r.Positions),
		UserTradesScraped:     intPtr(r.Trades),
		Errors:                r.Errors,
		ErrorCount:            intPtr(r.ErrorCount),
	}
}

func intPtr(v int) *int {
	return &v
}

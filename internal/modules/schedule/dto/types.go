package dto

import "time"

type WindowStatus struct {
	Now         time.Time
	Policy      string
	Open        bool
	NextOpening time.Time
	Until       time.Duration
	NeverOpens  bool
}

type UpcomingInput struct {
	Count int
}

type UpcomingOutput struct {
	Openings []time.Time
}

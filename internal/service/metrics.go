package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReviewVotesTotal counts helpfulness votes by resulting transition.
	ReviewVotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_review_votes_total",
			Help: "Total number of review helpfulness votes by transition",
		},
		[]string{"transition"},
	)

	// RatingRecalculationsTotal counts product rating recomputations.
	RatingRecalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_rating_recalculations_total",
			Help: "Total number of product rating recalculations by result",
		},
		[]string{"result"},
	)
)

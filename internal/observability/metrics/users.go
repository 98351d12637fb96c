package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UsersSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_saved_total",
			Help: "Total number of users written by the repository",
		},
		[]string{"store", "mode"},
	)

	UsersDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_deleted_total",
			Help: "Total number of user rows removed",
		},
		[]string{"store"},
	)

	UsernameLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_username_lookups_total",
			Help: "Total number of find-by-username lookups by outcome",
		},
		[]string{"store", "result"},
	)
)

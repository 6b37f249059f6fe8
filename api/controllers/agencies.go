package controllers

import (
	"net/http"

	"github.com/topsevenstore/checkout-api/api/responses"
	"github.com/topsevenstore/checkout-api/internal/agencies"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

func AgencyList(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		directory, err := svc.Directory(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if directory == nil {
			directory = []types.Agency{}
		}
		responses.WriteSuccess(w, map[string]any{"agencies": directory})
	}
}

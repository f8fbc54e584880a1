package httptransport

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/ledger"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/platform/sentinel"
)

// RecordResolver tries to produce the canonical wire encoding of the record
// at an address, returning sentinel.ErrNotFound when the address belongs to
// another record family.
type RecordResolver func(ctx context.Context, addr ledger.Address) ([]byte, error)

type recordDTO struct {
	Address string `json:"address"`
	Record  string `json:"record"` // base64 wire bytes, tag first
}

// recordHandler serves layout-stable record bytes so SDKs can decode
// independently of the JSON API. Resolvers are tried in order.
func recordHandler(resolvers []RecordResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := ledger.Address(chi.URLParam(r, "address"))
		for _, resolve := range resolvers {
			data, err := resolve(r.Context(), addr)
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, recordDTO{
				Address: addr.String(),
				Record:  base64.StdEncoding.EncodeToString(data),
			})
			return
		}
		httputil.WriteError(w, sentinel.ErrNotFound)
	}
}

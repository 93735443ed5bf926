package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"govalert/internal/domain/notification"
	"govalert/internal/domain/provider"
	"govalert/internal/repository"
	govalert_errors "govalert/pkg/errors"
)

// Registry selects the delivery provider for a message. It is constructed
// once at process start and injected into the dispatch pipeline; provider
// rows are re-read on every selection so that administrative changes
// (activation, priority) are visible to the next dispatch attempt.
type Registry struct {
	providers  repository.ProviderRepository
	homeRegion string
}

func New(providers repository.ProviderRepository, homeRegion string) *Registry {
	return &Registry{providers: providers, homeRegion: homeRegion}
}

// SelectProvider returns the single provider to use for the given channel
// and recipient. Selection is deterministic for a fixed provider set:
// highest priority wins, ties broken by identifier.
func (r *Registry) SelectProvider(ctx context.Context, channel notification.Channel, recipient string) (provider.ProviderDetails, error) {
	candidates, err := r.providers.GetByChannel(ctx, channel)
	if err != nil {
		return provider.ProviderDetails{}, err
	}

	international := channel == notification.ChannelSMS && r.isInternational(recipient)

	eligible := candidates[:0:0]
	for _, p := range candidates {
		if !p.Active {
			continue
		}
		if international && !p.SupportsInternational {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) == 0 {
		return provider.ProviderDetails{}, govalert_errors.ErrNoProviderAvailable
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].Identifier < eligible[j].Identifier
	})
	return eligible[0], nil
}

// isInternational parses the recipient number and compares its region
// against the configured home region. Unparseable numbers are treated as
// domestic; downstream validation owns rejecting them.
func (r *Registry) isInternational(recipient string) bool {
	num := strings.TrimSpace(recipient)
	parsed, err := phonenumbers.Parse(num, r.homeRegion)
	if err != nil {
		return false
	}
	region := phonenumbers.GetRegionCodeForNumber(parsed)
	return region != "" && region != r.homeRegion
}

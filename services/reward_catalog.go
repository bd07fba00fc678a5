// services/reward_catalog.go
package services

import (
	"fmt"
	"math/rand"
	"strings"

	"claim-link-service/models"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultRewardNames is the production role list handed out by the gacha.
var DefaultRewardNames = []string{
	"Alya", "Amanda", "Anindya", "Aralie", "Cathy", "Chelsea", "Christy", "Cynthia", "Daisy",
	"Danella", "Delynn", "Eli", "Elin", "Ella", "Erine", "Feni", "Fiony", "Freya", "Fritzy", "Gendis", "Gita",
	"Gracia", "Gracie", "Greesel", "Indah", "Indira", "Jessi", "Kathrina", "Kimmy", "Lana", "Levi", "Lia", "Lily",
	"Lulu", "Lyn", "Marsha", "Michie", "Moreen", "Muthe", "Nachia", "Nala", "Nayla", "Oline", "Olla", "Oniel",
	"Raisha", "Regie", "Ribka", "Trisha",
}

// RewardCatalog is an ordered, read-only list of rewards. Build it once at
// start-up and share the pointer.
type RewardCatalog struct {
	rewards []models.Reward
	byName  map[string]struct{}
}

// NewRewardCatalog normalises names (trimmed, title case) and rejects blanks
// and entries that collide on their slug code.
func NewRewardCatalog(names []string) (*RewardCatalog, error) {
	if len(names) == 0 {
		return nil, ErrEmptyCatalog
	}

	title := cases.Title(language.Und)
	rewards := make([]models.Reward, 0, len(names))
	byName := make(map[string]struct{}, len(names))
	codes := make(map[string]struct{}, len(names))

	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("reward #%d: blank name", i)
		}
		name = title.String(name)
		code := slug.Make(name)
		if _, dup := codes[code]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateReward, name)
		}
		codes[code] = struct{}{}
		byName[name] = struct{}{}
		rewards = append(rewards, models.Reward{Name: name, Code: code})
	}

	return &RewardCatalog{rewards: rewards, byName: byName}, nil
}

func (c *RewardCatalog) Len() int { return len(c.rewards) }

func (c *RewardCatalog) At(i int) models.Reward { return c.rewards[i] }

// Rewards returns a copy; callers cannot mutate the catalog.
func (c *RewardCatalog) Rewards() []models.Reward {
	out := make([]models.Reward, len(c.rewards))
	copy(out, c.rewards)
	return out
}

func (c *RewardCatalog) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// RewardSelector draws uniformly from a catalog. Draws are independent and
// may repeat; it keeps no history.
type RewardSelector struct {
	catalog *RewardCatalog
	intN    func(n int) int
}

// NewRewardSelector uses math/rand's top-level source, which is safe for concurrent callers.
func NewRewardSelector(catalog *RewardCatalog) *RewardSelector {
	return &RewardSelector{catalog: catalog, intN: rand.Intn}
}

// NewRewardSelectorWithSource lets tests pin the draw.
func NewRewardSelectorWithSource(catalog *RewardCatalog, intN func(n int) int) *RewardSelector {
	return &RewardSelector{catalog: catalog, intN: intN}
}

// Pick returns one reward, each with probability 1/Len().
func (s *RewardSelector) Pick() models.Reward {
	return s.catalog.At(s.intN(s.catalog.Len()))
}

func (s *RewardSelector) Catalog() *RewardCatalog { return s.catalog }

package scoring

import (
	"sort"
	"strings"

	"github.com/abrezinsky/pizzarate/internal/errors"
)

// Criterion keys. Their order is the order criteria are presented in.
const (
	VisualAppeal     = "visualAppeal"
	Aroma            = "aroma"
	SliceStructure   = "sliceStructure"
	CrustCrispiness  = "crustCrispiness"
	CrustTexture     = "crustTexture"
	CrustFlavor      = "crustFlavor"
	SauceBalance     = "sauceBalance"
	SauceSpread      = "sauceSpread"
	CheesePull       = "cheesePull"
	CheeseFlavor     = "cheeseFlavor"
	ToppingAmount    = "toppingAmount"
	ToppingHarmony   = "toppingHarmony"
	ToppingFreshness = "toppingFreshness"
)

const (
	MinScore     = 1
	MaxScore     = 10
	DefaultScore = 5
)

// Criterion describes one scored aspect of a pizza
type Criterion struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Min         int       `json:"min"`
	Max         int       `json:"max"`
	Labels      [2]string `json:"labels"` // low, high
}

var criteria = []Criterion{
	{VisualAppeal, "Pizzazzle Score", "How visually stunning is this pizza?", MinScore, MaxScore, [2]string{"Meh-diocre", "Insta-Worthy Masterpiece"}},
	{Aroma, "The Aroma-Rama", "What tales does the scent tell?", MinScore, MaxScore, [2]string{"Faint Whisper", "Get In My Belly NOW!"}},
	{SliceStructure, "The Slice Swagger", "How does that first slice look when you pull it away?", MinScore, MaxScore, [2]string{"Total Flop Show", "Gravity-Defying Glory"}},
	{CrustCrispiness, "Crisp Factor", "Is the bottom a delightful crunch or a sorrowful sog?", MinScore, MaxScore, [2]string{"Limp Biscuit", "Crackles Like Thunder"}},
	{CrustTexture, "Chewtopia", "How's that doughy interior?", MinScore, MaxScore, [2]string{"Cloud Nine", "Jaw Workout"}},
	{CrustFlavor, "Flavor Fiesta (Crust Edition)", "Does the crust itself sing a song of yeasty goodness?", MinScore, MaxScore, [2]string{"Cardboard City", "Artisanal Bread Bonanza"}},
	{SauceBalance, "Tang-o-Meter", "Sweet, tangy, zesty, or just... red?", MinScore, MaxScore, [2]string{"Ketchup's Sad Cousin", "Flavor Volcano"}},
	{SauceSpread, "Sauce Spillage Index", "Does it stay put, or are you wearing it?", MinScore, MaxScore, [2]string{"Neat Freak's Dream", "Jackson Pollock Painting"}},
	{CheesePull, "The Molten Magnitude", "How glorious is that cheese pull?", MinScore, MaxScore, [2]string{"Barely There Strings", "Stretchy as a Yoga Master"}},
	{CheeseFlavor, "Flavor Profile of Paradise", "Is it sharp, salty, creamy, or mysterious?", MinScore, MaxScore, [2]string{"Plastic Impersonator", "Dairy Divinity"}},
	{ToppingAmount, "Generosity Score", "Are the toppings plentiful or playing hide-and-seek?", MinScore, MaxScore, [2]string{"Where's Waldo?", "Bountiful Bonanza"}},
	{ToppingHarmony, "The Harmony Test", "Do the toppings sing in perfect harmony?", MinScore, MaxScore, [2]string{"Flavor Clash Catastrophe", "Symphony of Deliciousness"}},
	{ToppingFreshness, "Freshness Factor", "How fresh are the toppings?", MinScore, MaxScore, [2]string{"Seen Better Days", "Farm-to-Pizza Fresh"}},
}

// CriterionCount is the fixed divisor for per-rating scores
var CriterionCount = len(criteria)

var criterionIndex = func() map[string]int {
	m := make(map[string]int, len(criteria))
	for i, c := range criteria {
		m[c.Key] = i
	}
	return m
}()

// Criteria returns the criteria in presentation order
func Criteria() []Criterion {
	out := make([]Criterion, len(criteria))
	copy(out, criteria)
	return out
}

// IsCriterion reports whether key names a known criterion
func IsCriterion(key string) bool {
	_, ok := criterionIndex[key]
	return ok
}

// DefaultCriteria returns a fresh score map with every criterion at DefaultScore
func DefaultCriteria() map[string]int {
	m := make(map[string]int, len(criteria))
	for _, c := range criteria {
		m[c.Key] = DefaultScore
	}
	return m
}

// ValidateCriteria checks that scores has exactly the known keys, each in range
func ValidateCriteria(scores map[string]int) error {
	var missing, unknown, outOfRange []string

	for _, c := range criteria {
		v, ok := scores[c.Key]
		if !ok {
			missing = append(missing, c.Key)
			continue
		}
		if v < c.Min || v > c.Max {
			outOfRange = append(outOfRange, c.Key)
		}
	}
	for k := range scores {
		if !IsCriterion(k) {
			unknown = append(unknown, k)
		}
	}

	switch {
	case len(missing) > 0:
		return errors.Validationf("missing criteria: %s", strings.Join(missing, ", "))
	case len(unknown) > 0:
		sort.Strings(unknown)
		return errors.Validationf("unknown criteria: %s", strings.Join(unknown, ", "))
	case len(outOfRange) > 0:
		return errors.Validationf("scores must be between %d and %d: %s", MinScore, MaxScore, strings.Join(outOfRange, ", "))
	}
	return nil
}

package retro

// Scenario is the content of a scenario file: how reward is computed and
// when an episode is done.
type Scenario struct {
	Done   DoneSpec   `json:"done"`
	Reward RewardSpec `json:"reward"`
}

// DoneSpec lists per-variable termination checks.
type DoneSpec struct {
	Variables map[string]Condition `json:"variables"`
	// Condition is "any" (default) or "all".
	Condition string `json:"condition"`
}

// Condition compares a variable against Reference using Op.
type Condition struct {
	Op        string `json:"op"`
	Reference int    `json:"reference"`
}

// RewardSpec lists per-variable reward coefficients applied to the change
// of each variable since the previous step.
type RewardSpec struct {
	Variables map[string]RewardTerm `json:"variables"`
}

// RewardTerm weighs the change of one variable.
type RewardTerm struct {
	Reward  float64 `json:"reward"`
	Penalty float64 `json:"penalty"`
}

// Ops accepted in [Condition.Op].
var Ops = []string{
	"nop", "equal", "negative-equal", "not-equal",
	"less-than", "greater-than", "less-or-equal", "greater-or-equal",
	"zero", "nonzero", "positive", "negative", "sign",
}

// holds reports whether v satisfies c. "nop" never holds.
func (c Condition) holds(v int) bool {
	switch c.Op {
	case "equal":
		return v == c.Reference
	case "negative-equal":
		return v == -c.Reference
	case "not-equal":
		return v != c.Reference
	case "less-than":
		return v < c.Reference
	case "greater-than":
		return v > c.Reference
	case "less-or-equal":
		return v <= c.Reference
	case "greater-or-equal":
		return v >= c.Reference
	case "zero":
		return v == 0
	case "nonzero":
		return v != 0
	case "positive":
		return v > 0
	case "negative":
		return v < 0
	case "sign":
		return sign(v) == sign(c.Reference)
	}

	return false
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}

	return 0
}

// IsDone reports whether info satisfies the done conditions. A scenario
// without done variables never ends. Variables missing from info do not
// hold.
func (s *Scenario) IsDone(info map[string]int) bool {
	if len(s.Done.Variables) == 0 {
		return false
	}

	all := s.Done.Condition == "all"

	for name, cond := range s.Done.Variables {
		v, ok := info[name]
		held := ok && cond.holds(v)

		if all && !held {
			return false
		}

		if !all && held {
			return true
		}
	}

	return all
}

// RewardFor returns the reward for moving from prev to cur. Increases are
// weighted by Reward and decreases by Penalty.
func (s *Scenario) RewardFor(prev, cur map[string]int) float64 {
	var total float64

	for name, term := range s.Reward.Variables {
		delta := cur[name] - prev[name]

		switch {
		case delta > 0:
			total += float64(delta) * term.Reward
		case delta < 0:
			total += float64(delta) * penaltyOrReward(term)
		}
	}

	return total
}

func penaltyOrReward(t RewardTerm) float64 {
	if t.Penalty != 0 {
		return t.Penalty
	}

	return t.Reward
}

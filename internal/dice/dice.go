// Package dice parses and rolls tabletop dice expressions such as 2d6+3,
// d20a+5 (advantage) or 4d6k3 (keep the highest three).
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	MaxDice  = 100
	MaxSides = 1000

	// cap on extra dice produced by exploding rolls
	maxExplosions = 100
)

var ErrInvalidExpression = errors.New("invalid dice expression")

var (
	simplePattern   = regexp.MustCompile(`^(\d+)d(\d+)(?:([+-])(\d+))?$`)
	advancedPattern = regexp.MustCompile(`^(\d+)?d(\d+)((?:[+-]\d+|[adkxr!><]\d*)*)$`)
	trailingMod     = regexp.MustCompile(`([+-])(\d+)$`)
	optionPattern   = regexp.MustCompile(`([adkxr!><])(\d*)`)

	abilityCheck = regexp.MustCompile(`^(\w+)\s+check`)
	skillCheck   = regexp.MustCompile(`^(\w+(?:\s+\w+)*)\s+skill`)
	bareModifier = regexp.MustCompile(`^[+-]?\d+$`)

	textSimple   = regexp.MustCompile(`\b(\d+d\d+(?:[+-]\d+)?)\b`)
	textAdvanced = regexp.MustCompile(`\b(?:\d+)?d\d+(?:[adkxr!><]\d*)*(?:[+-]\d+)?\b`)
)

// Result is the outcome of one roll.
type Result struct {
	Expression string
	Rolls      []int
	Total      int
	Breakdown  string
}

func (r Result) String() string {
	parts := make([]string, len(r.Rolls))
	for i, v := range r.Rolls {
		parts[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("%s = %d [%s]", r.Expression, r.Total, strings.Join(parts, ", "))
}

// Modifiers supplies ability and skill bonuses for contextual checks.
type Modifiers interface {
	AbilityModifier(ability string) int
	SkillBonus(skill string) int
}

// Roller is safe for concurrent use.
type Roller struct {
	mu   sync.Mutex
	intN func(n int) int
}

// NewRoller returns a Roller drawing from src, or from a time-seeded PCG
// source when src is nil.
func NewRoller(src rand.Source) *Roller {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	return &Roller{intN: rand.New(src).IntN}
}

func (r *Roller) die(sides int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intN(sides) + 1
}

func (r *Roller) dice(n, sides int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = r.die(sides)
	}
	return out
}

func normalize(expr string) string {
	return strings.ReplaceAll(strings.ToLower(expr), " ", "")
}

func validate(n, sides int) error {
	switch {
	case n <= 0 || sides <= 0:
		return fmt.Errorf("%w: %dd%d", ErrInvalidExpression, n, sides)
	case n > MaxDice:
		return fmt.Errorf("%w: too many dice: %d (max %d)", ErrInvalidExpression, n, MaxDice)
	case sides > MaxSides:
		return fmt.Errorf("%w: too many sides: %d (max %d)", ErrInvalidExpression, sides, MaxSides)
	}
	return nil
}

// Roll handles NdS with an optional +M or -M.
func (r *Roller) Roll(expr string) (Result, error) {
	m := simplePattern.FindStringSubmatch(normalize(expr))
	if m == nil {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}
	n, _ := strconv.Atoi(m[1])
	sides, _ := strconv.Atoi(m[2])
	if err := validate(n, sides); err != nil {
		return Result{}, err
	}

	op, modifier := "+", 0
	if m[3] != "" {
		op = m[3]
		modifier, _ = strconv.Atoi(m[4])
	}

	rolls := r.dice(n, sides)
	sum := total(rolls)

	res := Result{Expression: expr, Rolls: rolls}
	switch {
	case modifier == 0:
		res.Total = sum
		res.Breakdown = strconv.Itoa(sum)
	case op == "+":
		res.Total = sum + modifier
		res.Breakdown = fmt.Sprintf("%d + %d", sum, modifier)
	default:
		res.Total = sum - modifier
		res.Breakdown = fmt.Sprintf("%d - %d", sum, modifier)
	}
	return res, nil
}

// RollAdvanced handles [N]dS followed by options:
//
//	a   advantage (roll the set twice, keep the higher sum)
//	d   disadvantage
//	kN  keep the highest N
//	xN  keep the lowest N
//	!   exploding dice
//	rN  reroll results <= N once
//
// and an optional trailing +M or -M.
func (r *Roller) RollAdvanced(expr string) (Result, error) {
	m := advancedPattern.FindStringSubmatch(normalize(expr))
	if m == nil {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}
	n := 1
	if m[1] != "" {
		n, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if err := validate(n, sides); err != nil {
		return Result{}, err
	}

	options := m[3]
	modifier := 0
	if mm := trailingMod.FindStringSubmatchIndex(options); mm != nil {
		value, _ := strconv.Atoi(options[mm[4]:mm[5]])
		if options[mm[2]:mm[3]] == "-" {
			value = -value
		}
		modifier = value
		options = options[:mm[0]]
	}

	var (
		advantage, disadvantage, exploding bool
		keepHighest, keepLowest, reroll    int
	)
	for _, om := range optionPattern.FindAllStringSubmatch(options, -1) {
		value, _ := strconv.Atoi(om[2])
		switch om[1] {
		case "a":
			advantage = true
		case "d":
			disadvantage = true
		case "k":
			keepHighest = valueOrDefault(value, n)
		case "x":
			keepLowest = valueOrDefault(value, n)
		case "!":
			exploding = true
		case "r":
			reroll = valueOrDefault(value, 1)
		}
	}

	var (
		rolls     []int
		breakdown string
	)
	if advantage || disadvantage {
		first, second := r.dice(n, sides), r.dice(n, sides)
		a, b := total(first), total(second)
		if advantage {
			rolls = second
			if a > b {
				rolls = first
			}
			breakdown = fmt.Sprintf("Advantage: %d vs %d", a, b)
		} else {
			rolls = second
			if a < b {
				rolls = first
			}
			breakdown = fmt.Sprintf("Disadvantage: %d vs %d", a, b)
		}
	} else {
		if exploding {
			extra := 0
			for i := 0; i < n; i++ {
				v := r.die(sides)
				rolls = append(rolls, v)
				for v == sides && extra < maxExplosions {
					v = r.die(sides)
					rolls = append(rolls, v)
					extra++
				}
			}
			breakdown = "Exploding: " + formatRolls(rolls)
		} else {
			rolls = r.dice(n, sides)
			breakdown = "Rolls: " + formatRolls(rolls)
		}

		if reroll > 0 {
			for i, v := range rolls {
				if v <= reroll {
					rolls[i] = r.die(sides)
				}
			}
			breakdown += fmt.Sprintf(" (Rerolls: %d+)", reroll)
		}

		if keepHighest > 0 && keepHighest < len(rolls) {
			sorted := append([]int(nil), rolls...)
			sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
			rolls = sorted[:keepHighest]
			breakdown += fmt.Sprintf(" (Keep highest %d)", keepHighest)
		}
		if keepLowest > 0 && keepLowest < len(rolls) {
			sorted := append([]int(nil), rolls...)
			sort.Ints(sorted)
			rolls = sorted[:keepLowest]
			breakdown += fmt.Sprintf(" (Keep lowest %d)", keepLowest)
		}
	}

	if modifier > 0 {
		breakdown += fmt.Sprintf(" + %d", modifier)
	} else if modifier < 0 {
		breakdown += fmt.Sprintf(" - %d", -modifier)
	}

	return Result{
		Expression: expr,
		Rolls:      rolls,
		Total:      total(rolls) + modifier,
		Breakdown:  breakdown,
	}, nil
}

// RollWithContext understands "<ability> check" and "<skill> skill" when
// mods is non-nil, treats a bare number as a d20 modifier, and otherwise
// tries the advanced grammar before the simple one. An empty expression
// rolls 1d20.
func (r *Roller) RollWithContext(expr string, mods Modifiers) (Result, error) {
	lower := strings.ToLower(strings.TrimSpace(expr))

	if mods != nil {
		if m := abilityCheck.FindStringSubmatch(lower); m != nil {
			return r.check(strings.ToUpper(m[1])+" check", mods.AbilityModifier(m[1]))
		}
		if m := skillCheck.FindStringSubmatch(lower); m != nil {
			return r.check(titleCase(m[1])+" check", mods.SkillBonus(m[1]))
		}
	}

	switch {
	case lower == "":
		lower = "1d20"
	case bareModifier.MatchString(lower):
		mod, _ := strconv.Atoi(lower)
		lower = d20(mod)
	case !strings.Contains(lower, "d"):
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}

	if res, err := r.RollAdvanced(lower); err == nil {
		return res, nil
	}
	return r.Roll(lower)
}

func (r *Roller) check(label string, modifier int) (Result, error) {
	expr := d20(modifier)
	res, err := r.Roll(expr)
	if err != nil {
		return Result{}, err
	}
	res.Expression = fmt.Sprintf("%s (%s)", label, expr)
	return res, nil
}

// RollText rolls every dice expression found in text, longest first.
// Expressions that fail to roll are skipped.
func (r *Roller) RollText(text string) []Result {
	var results []Result
	for _, expr := range FindInText(text) {
		res, err := r.RollWithContext(expr, nil)
		if err != nil {
			continue
		}
		results = append(results, res)
	}
	return results
}

// FindInText returns the distinct dice expressions in text, longest first.
func FindInText(text string) []string {
	seen := map[string]struct{}{}
	var found []string
	add := func(expr string) {
		if _, ok := seen[expr]; ok {
			return
		}
		seen[expr] = struct{}{}
		found = append(found, expr)
	}
	for _, m := range textSimple.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range textAdvanced.FindAllString(text, -1) {
		add(m)
	}
	sort.SliceStable(found, func(i, j int) bool {
		if len(found[i]) != len(found[j]) {
			return len(found[i]) > len(found[j])
		}
		return found[i] < found[j]
	})
	return found
}

func d20(modifier int) string {
	if modifier >= 0 {
		return fmt.Sprintf("1d20+%d", modifier)
	}
	return fmt.Sprintf("1d20%d", modifier)
}

func total(rolls []int) int {
	sum := 0
	for _, v := range rolls {
		sum += v
	}
	return sum
}

func formatRolls(rolls []int) string {
	parts := make([]string, len(rolls))
	for i, v := range rolls {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func valueOrDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

package prompts

import (
	"errors"
	"fmt"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
)

// ErrNoStrategyAvailable means the escalation ladder is exhausted.
var ErrNoStrategyAvailable = errors.New("no mutation strategy available")

// errNotApplicable is returned by a strategy that cannot serve this prompt
// (e.g. no nickname mapping exists). The mutator's fallthrough policy
// decides whether that skips the rung or stops the ladder.
var errNotApplicable = errors.New("strategy not applicable")

// Strategy is one rung of the escalation ladder. Apply transforms the
// previous prompt's references; it must be deterministic.
type Strategy interface {
	Name() string
	Apply(prev Prompt, cls Classification) (Prompt, error)
}

// Mutator walks the ordered ladder, least transformation first: each rung
// costs one more paid generation attempt. Strategies always work from the
// previous prompt so previously flagged tokens are not re-introduced.
type Mutator struct {
	composer   *Composer
	strategies []Strategy
	failFast   bool // "fail" fallthrough policy
}

func NewMutator(composer *Composer, cfg config.VEO3Config) *Mutator {
	return &Mutator{
		composer: composer,
		strategies: []Strategy{
			dropTeamStrategy{},
			nicknameStrategy{},
			roleDescriptorStrategy{},
			fullGenericStrategy{},
		},
		failFast: cfg.NicknameFallthrough == "fail",
	}
}

// Mutate produces the next candidate prompt. Pure with respect to its
// inputs: identical (prev, cls) always yields the same result.
func (m *Mutator) Mutate(prev Prompt, cls Classification) (Prompt, error) {
	for i := prev.Rung; i < len(m.strategies); i++ {
		s := m.strategies[i]
		next, err := s.Apply(prev, cls)
		if errors.Is(err, errNotApplicable) {
			if m.failFast {
				return Prompt{}, fmt.Errorf("%w: %s not applicable and fallthrough disabled", ErrNoStrategyAvailable, s.Name())
			}
			continue
		}
		if err != nil {
			return Prompt{}, err
		}
		next.Strategy = s.Name()
		next.Rung = i + 1
		next.Attempt = prev.Attempt + 1
		if err := m.composer.render(&next); err != nil {
			return Prompt{}, err
		}
		return next, nil
	}
	return Prompt{}, ErrNoStrategyAvailable
}

// Rung 1: remove the team reference, keep only the surname. Breaks the
// surname+team co-occurrence most often flagged.
type dropTeamStrategy struct{}

func (dropTeamStrategy) Name() string { return "drop_team_surname_only" }

func (dropTeamStrategy) Apply(prev Prompt, _ Classification) (Prompt, error) {
	next := prev
	if p, ok := LookupPlayer(prev.req.PlayerName); ok {
		next.PlayerRef = p.Surname
	}
	next.TeamRef = ""
	return next, nil
}

// Rung 2: surname becomes the curated nickname, team becomes a geographic
// or colour descriptor instead of its official name.
type nicknameStrategy struct{}

func (nicknameStrategy) Name() string { return "nickname_and_descriptor" }

func (nicknameStrategy) Apply(prev Prompt, _ Classification) (Prompt, error) {
	p, ok := LookupPlayer(prev.req.PlayerName)
	if !ok || p.Nickname == "" {
		return Prompt{}, errNotApplicable
	}
	next := prev
	next.PlayerRef = p.Nickname
	if cl, ok := LookupClub(prev.req.Team); ok {
		next.TeamRef = cl.GeoDesc
	} else {
		next.TeamRef = ""
	}
	return next, nil
}

// Rung 3: role-based descriptor, zero proper nouns. Identifies the club by
// its colours rather than geography, so a geographic descriptor already
// flagged at rung 2 is not resubmitted.
type roleDescriptorStrategy struct{}

func (roleDescriptorStrategy) Name() string { return "role_descriptor" }

func (roleDescriptorStrategy) Apply(prev Prompt, _ Classification) (Prompt, error) {
	next := prev
	position := "forward"
	if p, ok := LookupPlayer(prev.req.PlayerName); ok && p.Position != "" {
		position = p.Position
	} else if prev.req.Position != "" {
		position = prev.req.Position
	}
	if cl, ok := LookupClub(prev.req.Team); ok {
		next.PlayerRef = fmt.Sprintf("the %s of %s", position, cl.ColorDesc)
	} else {
		next.PlayerRef = "the " + position
	}
	next.TeamRef = ""
	return next, nil
}

// Rung 4: fully genericize, numeric and narrative content only.
type fullGenericStrategy struct{}

func (fullGenericStrategy) Name() string { return "full_generic" }

func (fullGenericStrategy) Apply(prev Prompt, _ Classification) (Prompt, error) {
	next := prev
	next.PlayerRef = ""
	next.TeamRef = ""
	return next, nil
}

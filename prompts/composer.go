package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
)

// anaCharacter is the fixed presenter bible. Every prompt carries the same
// block so VEO3 keeps the presenter visually consistent across segments.
const anaCharacter = "A 32-year-old Spanish sports analyst with short wavy dark hair, " +
	"wearing a red blazer over a white top, seated at a modern football studio desk " +
	"with soft blue background lighting. The EXACT same woman as in the reference image."

// Rhetorical elements a viral arc can assign to a segment.
const (
	ElementHook         = "hook"
	ElementContext      = "context"
	ElementTurningPoint = "turning_point"
	ElementPayoff       = "payoff"
	ElementMoral        = "moral"
	ElementCTA          = "cta"
)

// ArcBeat pairs a rhetorical element with its emotional register.
type ArcBeat struct {
	Element string
	Emotion string
}

// The four canonical emotional arcs, keyed by content type. Documentary
// reuses the deep-analysis arc.
var viralArcs = map[string][]ArcBeat{
	models.ContentTypeChollo: {
		{ElementHook, "conspiratorial intrigue"},
		{ElementContext, "building curiosity"},
		{ElementTurningPoint, "sudden revelation"},
		{ElementPayoff, "contagious excitement"},
		{ElementCTA, "urgent confidence"},
	},
	models.ContentTypePrediction: {
		{ElementHook, "bold confidence"},
		{ElementContext, "calm analysis"},
		{ElementTurningPoint, "firm conviction"},
		{ElementPayoff, "authority"},
		{ElementCTA, "playful challenge"},
	},
	models.ContentTypeBreakingNews: {
		{ElementHook, "breathless urgency"},
		{ElementContext, "serious gravity"},
		{ElementTurningPoint, "dramatic impact"},
		{ElementPayoff, "clear-headed summary"},
		{ElementCTA, "urgency"},
	},
	models.ContentTypeAnalysis: {
		{ElementHook, "genuine curiosity"},
		{ElementContext, "thoughtful depth"},
		{ElementTurningPoint, "sharp insight"},
		{ElementPayoff, "quiet satisfaction"},
		{ElementMoral, "measured wisdom"},
		{ElementCTA, "warm invitation"},
	},
}

// beatFor maps segment index onto the arc proportionally, so any segment
// count walks the arc start to finish.
func beatFor(arc []ArcBeat, index, total int) ArcBeat {
	if total <= 1 {
		return arc[0]
	}
	pos := index * (len(arc) - 1) / (total - 1)
	return arc[pos]
}

// Prompt is one candidate generation instruction. Values are never edited
// in place: every mutation produces a new Prompt.
type Prompt struct {
	Text     string
	Dialogue string // authored dialogue, before reference substitution
	// SpokenDialogue is the dialogue as it was rendered into Text, with the
	// current references applied. This is what the presenter will actually
	// say on the audio track, so captions must be built from it.
	SpokenDialogue string
	PlayerRef      string // how the player is referenced; "" means fully generic
	TeamRef        string // how the team is referenced; "" means no team mention
	Strategy       string // mutation strategy that produced this prompt, "none" initially
	Rung           int    // ladder position, 0 = unmutated
	Attempt        int

	segIndex int
	segTotal int
	req      models.JobRequest
}

// ErrDialogueTooLong and ErrPromptTooLong fail a request before any network
// call; the provider truncates or garbles over-length prompts.
var (
	ErrDialogueTooLong = fmt.Errorf("dialogue exceeds character budget")
	ErrPromptTooLong   = fmt.Errorf("prompt exceeds character budget")
)

// Composer builds VEO3 prompts from structured job requests. Construction
// takes the full provider config; the composer never reads globals.
type Composer struct {
	cfg config.VEO3Config
}

func NewComposer(cfg config.VEO3Config) *Composer {
	return &Composer{cfg: cfg}
}

// Compose builds the attempt-1 prompt for one segment of a request.
func (c *Composer) Compose(req models.JobRequest, segIndex int) (Prompt, error) {
	dialogue := c.dialogueFor(req, segIndex)
	if len(dialogue) > c.cfg.DialogueMaxChars {
		return Prompt{}, fmt.Errorf("%w: %d chars, budget %d", ErrDialogueTooLong, len(dialogue), c.cfg.DialogueMaxChars)
	}

	p := Prompt{
		Dialogue:  dialogue,
		PlayerRef: req.PlayerName,
		TeamRef:   req.Team,
		Strategy:  "none",
		Rung:      0,
		Attempt:   1,
		segIndex:  segIndex,
		segTotal:  req.SegmentCount,
		req:       req,
	}
	if err := c.render(&p); err != nil {
		return Prompt{}, err
	}
	return p, nil
}

// render rebuilds Text from the prompt's current references. The mutator
// calls this after rewriting PlayerRef/TeamRef so flagged tokens inside the
// dialogue are rewritten too.
func (c *Composer) render(p *Prompt) error {
	dialogue := applyRefs(p.Dialogue, p.req, p.PlayerRef, p.TeamRef)
	p.SpokenDialogue = dialogue

	var b strings.Builder
	b.WriteString(anaCharacter)
	b.WriteString("\n\n")

	if p.req.ViralStructure {
		arc, ok := viralArcs[p.req.ContentType]
		if !ok {
			arc = viralArcs[models.ContentTypeAnalysis]
		}
		beat := beatFor(arc, p.segIndex, p.segTotal)
		fmt.Fprintf(&b, "This segment is the %s of the piece. Her emotional register: %s.\n\n",
			strings.ReplaceAll(beat.Element, "_", " "), beat.Emotion)
	}

	fmt.Fprintf(&b, "She looks straight into the camera and says, in energetic Castilian Spanish: %q\n\n", dialogue)

	if p.segIndex > 0 {
		b.WriteString("Opens with the identical framing, pose and lighting as the final frame of the previous segment. ")
	}
	b.WriteString("Ends holding a steady mid-shot, hands resting on the desk, same lighting, ready to cut. ")
	b.WriteString("No on-screen text, no subtitles, no captions of any kind.")

	text := b.String()
	if len(text) > c.cfg.PromptMaxChars {
		return fmt.Errorf("%w: %d chars, budget %d", ErrPromptTooLong, len(text), c.cfg.PromptMaxChars)
	}
	p.Text = text
	return nil
}

// applyRefs rewrites every known form of the player and team inside the
// dialogue to the given references. An empty teamRef removes the mention,
// an empty playerRef genericizes the player. Forms are swapped for opaque
// tokens first, longest form first, so "FC Barcelona" is not mangled by a
// "Barcelona" pass and a surname never re-expands inside a full name.
func applyRefs(dialogue string, req models.JobRequest, playerRef, teamRef string) string {
	const playerToken = "\x00P\x00"
	const teamToken = "\x00T\x00"

	playerTo := playerRef
	if playerTo == "" {
		playerTo = "this player"
	}
	var playerForms []string
	if p, ok := LookupPlayer(req.PlayerName); ok {
		playerForms = []string{p.FullName, p.Surname}
	} else if req.PlayerName != "" {
		playerForms = []string{req.PlayerName}
	}

	var teamForms []string
	if cl, ok := LookupClub(req.Team); ok {
		teamForms = append([]string{cl.Name}, cl.Aliases...)
	} else if req.Team != "" {
		teamForms = []string{req.Team}
	}
	sort.Slice(teamForms, func(i, j int) bool { return len(teamForms[i]) > len(teamForms[j]) })

	out := dialogue
	for _, form := range playerForms {
		out = replaceInsensitive(out, form, playerToken)
	}
	for _, form := range teamForms {
		if teamRef == "" {
			// strip the mention and the glue around it
			out = replaceInsensitive(out, " of "+form, "")
			out = replaceInsensitive(out, " del "+form, "")
			out = replaceInsensitive(out, " de "+form, "")
			out = replaceInsensitive(out, form, "")
		} else {
			out = replaceInsensitive(out, form, teamToken)
		}
	}
	out = strings.ReplaceAll(out, playerToken, playerTo)
	out = strings.ReplaceAll(out, teamToken, teamRef)

	return strings.Join(strings.Fields(out), " ")
}

// replaceInsensitive replaces every case-insensitive occurrence of old.
func replaceInsensitive(s, old, new string) string {
	if old == "" {
		return s
	}
	var b strings.Builder
	lower := strings.ToLower(s)
	lowerOld := strings.ToLower(old)
	for {
		i := strings.Index(lower, lowerOld)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(new)
		s = s[i+len(old):]
		lower = lower[i+len(lowerOld):]
	}
}

// dialogueFor picks the caller-provided dialogue line for the segment, or
// synthesizes one from the structured payload.
func (c *Composer) dialogueFor(req models.JobRequest, segIndex int) string {
	if segIndex < len(req.Dialogues) && strings.TrimSpace(req.Dialogues[segIndex]) != "" {
		return strings.TrimSpace(req.Dialogues[segIndex])
	}
	role := models.RoleForIndex(segIndex, req.SegmentCount)
	switch req.ContentType {
	case models.ContentTypeChollo:
		switch role {
		case models.SegmentRoleHook:
			return fmt.Sprintf("Misters, parad todo. He encontrado un chollo que nadie esta mirando: %s a %.1f millones.", req.PlayerName, req.PriceM)
		case models.SegmentRoleClose:
			return fmt.Sprintf("A %.1f millones, %s es el fichaje de la jornada. Corred antes de que suba.", req.PriceM, req.PlayerName)
		default:
			return fmt.Sprintf("%s del %s lleva %d goles y %d asistencias en %d partidos. %.2f puntos por millon. Los numeros no mienten.",
				req.PlayerName, req.Team, req.Stats.Goals, req.Stats.Assists, req.Stats.Games, req.ValueRatio)
		}
	case models.ContentTypePrediction:
		switch role {
		case models.SegmentRoleHook:
			return fmt.Sprintf("Os lo digo ya: %s va a romper la jornada. Y tengo los datos para demostrarlo.", req.PlayerName)
		case models.SegmentRoleClose:
			return fmt.Sprintf("Mi prediccion: %s titular y puntuando doble. Luego no digais que no avise.", req.PlayerName)
		default:
			return fmt.Sprintf("%s llega en su mejor momento: %d goles en %d partidos y una media de %.1f.",
				req.PlayerName, req.Stats.Goals, req.Stats.Games, req.Stats.Rating)
		}
	case models.ContentTypeBreakingNews:
		switch role {
		case models.SegmentRoleHook:
			return fmt.Sprintf("Ultima hora en el fantasy: noticia bomba sobre %s del %s.", req.PlayerName, req.Team)
		case models.SegmentRoleClose:
			return "Actualizad vuestros onces ya. Esto cambia la jornada por completo."
		default:
			return req.Narrative
		}
	default:
		switch role {
		case models.SegmentRoleHook:
			return fmt.Sprintf("Hoy analizamos a fondo a %s. Lo que he encontrado os va a sorprender.", req.PlayerName)
		case models.SegmentRoleClose:
			return fmt.Sprintf("En resumen: %s a %.1f millones es una decision que define temporadas.", req.PlayerName, req.PriceM)
		default:
			return req.Narrative
		}
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urbanperceptions/survey-client/internal/api"
	"github.com/urbanperceptions/survey-client/internal/core/model"
	"github.com/urbanperceptions/survey-client/internal/geom"
	"github.com/urbanperceptions/survey-client/internal/profile"
	"github.com/urbanperceptions/survey-client/internal/selection"
	"github.com/urbanperceptions/survey-client/internal/survey"
	"github.com/urbanperceptions/survey-client/internal/taxonomy"
)

type ui struct {
	in  *bufio.Scanner
	out io.Writer

	// last search results, so "add N" can refer to them by index
	results []survey.SearchResult
}

func newUI(in io.Reader, out io.Writer) *ui {
	return &ui{in: bufio.NewScanner(in), out: out}
}

func (u *ui) say(format string, args ...any) {
	fmt.Fprintf(u.out, format+"\n", args...)
}

func (u *ui) readLine(prompt string) (string, bool) {
	fmt.Fprint(u.out, prompt)
	if !u.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(u.in.Text()), true
}

func (u *ui) consent() bool {
	u.say("This survey records the places you select and a short demographic")
	u.say("profile. Answers are stored under an anonymous participant id.")
	line, ok := u.readLine("Participate? [y/N] ")
	return ok && strings.EqualFold(line, "y")
}

func (u *ui) promptProfile() profile.Profile {
	for {
		var p profile.Profile
		p.AgeBand, _ = u.readLine("Age band (18-24/25-34/35-44/45-54/55-64/65+): ")
		p.Gender, _ = u.readLine("Gender (f/m/o/na): ")
		res, _ := u.readLine("Relation to Lisbon (lives_now/lived_past/never): ")
		p.Residency = profile.Residency(res)
		if p.Residency == profile.LivesNow {
			p.ParishHome, _ = u.readLine("Home parish (optional): ")
		}
		p.Belonging = u.readScale("Sense of belonging (1-5): ")
		p.SafetyDay = u.readScale("Feel safe by day (1-5): ")
		p.SafetyNight = u.readScale("Feel safe at night (1-5): ")
		if err := p.Validate(); err != nil {
			u.say("Invalid answer: %v. Starting over.", err)
			continue
		}
		return p
	}
}

func (u *ui) readScale(prompt string) int {
	for {
		line, ok := u.readLine(prompt)
		if !ok {
			return 0
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= 5 {
			return n
		}
		u.say("Please answer 1-5.")
	}
}

const helpText = `Commands:
  search <query>          geocode a place name
  add <n>                 select result n from the last search
  draw <lon,lat> ...      draw a polygon from 3+ vertices (auto-closed)
  name <i> <text>         name a drawn shape
  comment <i> <text>      comment on selection i
  importance <i> <1-5>    rate selection i
  remove <i>              remove selection i
  list                    show current selections
  categories              show available category layers
  toggle <code>           enable/disable a category layer
  layer <code>            show features loaded for a category
  view <w,s,e,n>          move the viewport
  continue                submit this theme and move on
  back                    return to the previous theme
  quit                    leave without submitting this theme`

func (u *ui) runWizard(ctx context.Context, wiz *survey.Wizard, client *api.Client, participantID string) error {
	for {
		page := wiz.Current()
		if page == nil {
			return nil
		}
		u.say("\n=== Theme %d/%d: %s ===", wiz.Index()+1, wiz.Len(), page.Theme)
		u.say("Mark the places that shape your sense of %s. Type 'help' for commands.",
			strings.ReplaceAll(page.Theme, "_", " "))

		advance, err := u.runPage(ctx, wiz, page, client, participantID)
		if err != nil {
			return err
		}
		if !advance {
			return nil // quit
		}
	}
}

// runPage handles one theme's command loop. It returns true when the wizard
// moved (continue or back) and false when the participant quit.
func (u *ui) runPage(ctx context.Context, wiz *survey.Wizard, page *survey.Page, client *api.Client, participantID string) (bool, error) {
	for {
		line, ok := u.readLine(page.Theme + "> ")
		if !ok {
			return false, nil
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "", "help":
			u.say(helpText)
		case "search":
			u.doSearch(ctx, page, rest)
		case "add":
			u.doAdd(page, rest)
		case "draw":
			u.doDraw(page, rest)
		case "name":
			u.editSelection(rest, page.Selections().SetName)
		case "comment":
			u.editSelection(rest, page.Selections().SetComment)
		case "importance":
			u.doImportance(page, rest)
		case "remove":
			u.doRemove(page, rest)
		case "list":
			u.doList(page)
		case "categories":
			u.doCategories(ctx, client)
		case "toggle":
			u.doToggle(ctx, page, rest)
		case "layer":
			u.doLayer(page, rest)
		case "view":
			u.doView(page, rest)
		case "continue":
			if u.doContinue(ctx, wiz, page, participantID) {
				return true, nil
			}
		case "back":
			wiz.Back()
			return true, nil
		case "quit":
			return false, nil
		default:
			u.say("Unknown command %q. Type 'help'.", cmd)
		}
	}
}

func (u *ui) doSearch(ctx context.Context, page *survey.Page, query string) {
	if query == "" {
		u.say("Usage: search <query>")
		return
	}
	results, err := page.Search(ctx, query)
	if err != nil {
		u.say("Search failed: %v", err)
		return
	}
	u.results = results
	if len(results) == 0 {
		u.say("No addable places found for %q.", query)
		return
	}
	for i, r := range results {
		u.say("%2d. %s [%s] (%.5f, %.5f)", i+1, r.DisplayName, r.Category, r.Center.Lat, r.Center.Lon)
	}
}

func (u *ui) doAdd(page *survey.Page, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(u.results) {
		u.say("Usage: add <n> with n from the last search results.")
		return
	}
	r := u.results[n-1]
	if err := page.Add(r); err != nil {
		u.say("Cannot add %s: %v", r.DisplayName, err)
		return
	}
	u.say("Added %s.", r.DisplayName)
}

func (u *ui) doDraw(page *survey.Page, rest string) {
	fields := strings.Fields(rest)
	if len(fields) < 3 {
		u.say("Usage: draw <lon,lat> <lon,lat> <lon,lat> [...]")
		return
	}
	ring := make([][]float64, 0, len(fields)+1)
	for _, f := range fields {
		lonStr, latStr, ok := strings.Cut(f, ",")
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		lat, errLat := strconv.ParseFloat(latStr, 64)
		if !ok || errLon != nil || errLat != nil {
			u.say("Bad vertex %q, expected lon,lat.", f)
			return
		}
		ring = append(ring, []float64{lon, lat})
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		ring = append(ring, first)
	}
	raw, _ := json.Marshal(map[string]any{
		"type":        "Polygon",
		"coordinates": [][][]float64{ring},
	})
	g, err := geom.Parse(raw)
	if err != nil {
		u.say("Bad shape: %v", err)
		return
	}
	key, err := page.Draw(g)
	if err != nil {
		u.say("Cannot add shape: %v", err)
		return
	}
	u.say("Shape added (layer %s). Give it a name before continuing.", key)
}

func (u *ui) editSelection(rest string, set func(int, string) error) {
	idxStr, text, _ := strings.Cut(rest, " ")
	i, err := strconv.Atoi(idxStr)
	if err != nil || strings.TrimSpace(text) == "" {
		u.say("Usage: <i> <text>")
		return
	}
	if err := set(i-1, strings.TrimSpace(text)); err != nil {
		u.say("Cannot update selection %d: %v", i, err)
	}
}

func (u *ui) doImportance(page *survey.Page, rest string) {
	idxStr, vStr, _ := strings.Cut(rest, " ")
	i, err1 := strconv.Atoi(idxStr)
	v, err2 := strconv.Atoi(strings.TrimSpace(vStr))
	if err1 != nil || err2 != nil {
		u.say("Usage: importance <i> <1-5>")
		return
	}
	if err := page.Selections().SetImportance(i-1, v); err != nil {
		u.say("Cannot rate selection %d: %v", i, err)
	}
}

func (u *ui) doRemove(page *survey.Page, arg string) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		u.say("Usage: remove <i>")
		return
	}
	item, err := page.Selections().Remove(i - 1)
	if err != nil {
		u.say("Cannot remove selection %d: %v", i, err)
		return
	}
	u.say("Removed %s.", itemLabel(item))
}

func (u *ui) doList(page *survey.Page) {
	items := page.Selections().Items()
	if len(items) == 0 {
		u.say("No selections yet.")
		return
	}
	for i, item := range items {
		line := fmt.Sprintf("%2d. %s (importance %d)", i+1, itemLabel(item), item.Importance)
		if item.Comment != "" {
			line += " // " + item.Comment
		}
		u.say("%s", line)
	}
}

func itemLabel(item selection.Item) string {
	if item.Kind == selection.KindManual {
		name := item.Name
		if name == "" {
			name = "(unnamed shape)"
		}
		return name + " [drawn]"
	}
	return item.DisplayName
}

func (u *ui) doCategories(ctx context.Context, client *api.Client) {
	cats, err := client.Categories(ctx)
	if err != nil {
		u.say("Falling back to the built-in taxonomy: %v", err)
		for _, c := range taxonomy.All {
			u.say("  %-18s %s", c, taxonomy.Label(c))
		}
		return
	}
	for _, c := range cats {
		u.say("  %-18s %s", c.Code, c.Label)
	}
}

func (u *ui) doToggle(ctx context.Context, page *survey.Page, code string) {
	if code == "" {
		u.say("Usage: toggle <code>")
		return
	}
	enabled := false
	for _, c := range page.Layers().Enabled() {
		if c == code {
			enabled = true
			break
		}
	}
	page.ToggleCategory(ctx, code, !enabled)
	if enabled {
		u.say("Layer %s off.", code)
	} else {
		u.say("Layer %s on: %d features.", code, len(page.Layers().Features(code)))
	}
}

func (u *ui) doLayer(page *survey.Page, code string) {
	features := page.Layers().Features(code)
	if len(features) == 0 {
		u.say("No features loaded for %s.", code)
		return
	}
	for _, f := range features {
		u.say("  %s (%.5f, %.5f)", f.DisplayName, f.Center.Lat, f.Center.Lon)
	}
}

func (u *ui) doView(page *survey.Page, arg string) {
	bbox, err := model.ParseBBox(arg)
	if err != nil {
		u.say("Usage: view <west,south,east,north>: %v", err)
		return
	}
	page.ViewportChanged(bbox)
	u.say("Viewport moved; enabled layers will refresh shortly.")
}

// doContinue submits the page and reports whether the wizard advanced.
func (u *ui) doContinue(ctx context.Context, wiz *survey.Wizard, page *survey.Page, participantID string) bool {
	err := page.Continue(ctx, participantID)

	var unnamed *survey.UnnamedShapesError
	switch {
	case err == nil:
		if page.Selections().Len() == 0 {
			u.say("Nothing selected; skipping this theme.")
		}
		wiz.Next()
		return true
	case errors.As(err, &unnamed):
		u.say("%v:", unnamed)
		for _, p := range unnamed.Problems {
			u.say("  - %v", p)
		}
		return false
	case errors.Is(err, survey.ErrSubmitFailed):
		u.say("Submission failed: %v", err)
		line, _ := u.readLine("Retry now? [Y/n] ")
		if line == "" || strings.EqualFold(line, "y") {
			return u.doContinue(ctx, wiz, page, participantID)
		}
		u.say("Moving on; this theme's answers were NOT saved.")
		wiz.Next()
		return true
	default:
		u.say("Unexpected error: %v", err)
		return false
	}
}

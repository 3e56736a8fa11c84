package processor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hollis-dev/deskmate/internal/intent"
	"github.com/hollis-dev/deskmate/pkg/models"
)

// Action names emitted by the pattern strategy. They must stay in sync with
// the handlers registered by the actuator package.
const (
	ActionOpenNotepad            = "open_notepad"
	ActionCompositeArticle       = "open_notepad_create_file_write_article"
	ActionGenerateArticleContent = "generate_article_content"
	ActionTypeContent            = "type_content"
	ActionCreateDocument         = "create_document"
	ActionOpenBrowser            = "open_browser"
	ActionSearchProduct          = "search_product"
	ActionTakeScreenshot         = "take_screenshot"
	ActionSaveFile               = "save_file"
	ActionOpenFile               = "open_file"
	ActionCopyFile               = "copy_file"
	ActionMoveFile               = "move_file"
	ActionDeleteFiles            = "delete_files"
	ActionAnalyzeCommand         = "analyze_command"
)

// OutputGeneratedContent is the named output of content-generating steps,
// referenced by later steps as {{generated_content}}.
const OutputGeneratedContent = "generated_content"

// patternTask builds a task from the deterministic rule set. It always
// succeeds.
func (p *Processor) patternTask(utterance string, a intent.Analysis) *models.Task {
	lower := strings.ToLower(utterance)

	switch {
	case a.HasIntent("create") && strings.Contains(lower, "article"):
		return articleTask(lower, a)
	case a.HasIntent("create") && (strings.Contains(lower, "letter") || strings.Contains(lower, "report")):
		return documentTask(lower, a)
	case a.HasIntent("search") || a.HasIntent("browse") ||
		strings.Contains(lower, "buy") || strings.Contains(lower, "shop") || strings.Contains(lower, "website"):
		return webTask(lower, a)
	case strings.Contains(lower, "screenshot"):
		return screenshotTask(a)
	case hasFileHints(lower, a):
		return fileTask(lower, a)
	default:
		return defaultTask(lower, a)
	}
}

// articleTask plans article writing. When the utterance asks to open an
// editor, name a file, and write in one breath, a single composite step
// replaces the three-step plan.
func articleTask(lower string, a intent.Analysis) *models.Task {
	topic := extractTopic(lower)
	filename := extractFilename(lower)

	opensEditor := a.HasIntent("open") || a.HasApplication("notepad")
	namesFile := strings.Contains(lower, "name it") || strings.Contains(lower, "save as")
	writes := strings.Contains(lower, "write") || strings.Contains(lower, "article")

	task := &models.Task{
		Category:            models.CategoryDocument,
		RiskLevel:           a.Risk,
		ContextRequirements: a.ContextNeeds,
		Description:         fmt.Sprintf("Write an article about %s", topic),
		SuccessCriteria:     fmt.Sprintf("Article about %s written to %s", topic, filename),
	}

	if opensEditor && namesFile && writes {
		task.Complexity = models.ComplexityComplex
		task.Steps = []models.Step{{
			Action:         ActionCompositeArticle,
			Application:    "notepad",
			Parameters:     map[string]string{"topic": topic, "filename": filename},
			ExpectedResult: fmt.Sprintf("%s created with an article about %s", filename, topic),
		}}
		return task
	}

	task.Complexity = models.ComplexityModerate
	task.Steps = []models.Step{
		{
			Action:         ActionOpenNotepad,
			Application:    "notepad",
			ExpectedResult: "Notepad is open",
		},
		{
			Action:         ActionGenerateArticleContent,
			Application:    "ai_generator",
			Parameters:     map[string]string{"topic": topic},
			ExpectedResult: fmt.Sprintf("Article content about %s generated", topic),
		},
		{
			Action:         ActionTypeContent,
			Application:    "notepad",
			Parameters:     map[string]string{"text": "{{" + OutputGeneratedContent + "}}"},
			ExpectedResult: "Article typed into the editor",
		},
	}
	return task
}

// documentTask plans letters, reports, and other tagged documents.
func documentTask(lower string, a intent.Analysis) *models.Task {
	docType := "document"
	if strings.Contains(lower, "letter") {
		docType = "letter"
	} else if strings.Contains(lower, "report") {
		docType = "report"
	}
	topic := extractTopic(lower)
	filename := extractFilename(lower)

	return &models.Task{
		Category:            models.CategoryDocument,
		Complexity:          models.ComplexityModerate,
		RiskLevel:           a.Risk,
		ContextRequirements: a.ContextNeeds,
		Description:         fmt.Sprintf("Create a %s about %s", docType, topic),
		SuccessCriteria:     fmt.Sprintf("%s saved as %s", docType, filename),
		Steps: []models.Step{{
			Action:      ActionCreateDocument,
			Application: "word",
			Parameters: map[string]string{
				"document_type": docType,
				"topic":         topic,
				"filename":      filename,
			},
			ExpectedResult: fmt.Sprintf("A %s about %s exists", docType, topic),
		}},
	}
}

// webTask plans browser work. Web tasks carry at least medium risk because
// they reach outside the machine.
func webTask(lower string, a intent.Analysis) *models.Task {
	query := extractQuery(lower)
	site := extractSite(lower)

	risk := a.Risk
	if risk == models.RiskLow {
		risk = models.RiskMedium
	}
	complexity := a.Complexity
	if complexity == models.ComplexitySimple {
		complexity = models.ComplexityModerate
	}

	steps := []models.Step{{
		Action:         ActionOpenBrowser,
		Application:    "browser",
		ExpectedResult: "Browser is open",
	}}
	if a.HasIntent("search") || strings.Contains(lower, "buy") || strings.Contains(lower, "shop") {
		params := map[string]string{"product": query}
		if site != "" {
			params["site"] = site
		}
		steps = append(steps, models.Step{
			Action:         ActionSearchProduct,
			Application:    "browser",
			Parameters:     params,
			ExpectedResult: fmt.Sprintf("Search results for %s visible", query),
		})
	}

	return &models.Task{
		Category:            models.CategoryWeb,
		Complexity:          complexity,
		RiskLevel:           risk,
		ContextRequirements: a.ContextNeeds,
		Description:         fmt.Sprintf("Search the web for %s", query),
		SuccessCriteria:     "Requested page reached",
		Steps:               steps,
	}
}

func screenshotTask(a intent.Analysis) *models.Task {
	return &models.Task{
		Category:            models.CategorySystem,
		Complexity:          models.ComplexitySimple,
		RiskLevel:           a.Risk,
		ContextRequirements: a.ContextNeeds,
		Description:         "Take a screenshot",
		SuccessCriteria:     "Screenshot file saved",
		Steps: []models.Step{{
			Action:         ActionTakeScreenshot,
			Application:    "system",
			ExpectedResult: "Screenshot saved to disk",
		}},
	}
}

// hasFileHints reports whether the utterance is about local files and has no
// stronger web or document signal.
func hasFileHints(lower string, a intent.Analysis) bool {
	hinted := false
	for _, kw := range []string{"file", "folder", "save", "open", "copy", "move", "delete"} {
		if strings.Contains(lower, kw) {
			hinted = true
			break
		}
	}
	if !hinted {
		return false
	}
	if strings.Contains(lower, "website") || a.HasApplication("browser") {
		return false
	}
	if strings.Contains(lower, "article") || strings.Contains(lower, "letter") || strings.Contains(lower, "report") {
		return false
	}
	return true
}

func fileTask(lower string, a intent.Analysis) *models.Task {
	action := ActionAnalyzeCommand
	verb := "handle"
	switch {
	case a.HasIntent("delete"):
		action, verb = ActionDeleteFiles, "delete"
	case a.HasIntent("copy"):
		action, verb = ActionCopyFile, "copy"
	case a.HasIntent("move"):
		action, verb = ActionMoveFile, "move"
	case a.HasIntent("save"):
		action, verb = ActionSaveFile, "save"
	case a.HasIntent("open"):
		action, verb = ActionOpenFile, "open"
	}

	params := map[string]string{}
	var target string
	switch action {
	case ActionAnalyzeCommand:
		// The analyze handler takes the whole utterance, not a path.
		params["command"] = lower
		target = lower
	case ActionMoveFile, ActionCopyFile:
		src, dst := fileOperands(lower, a)
		params["path"] = src
		if dst != "" {
			params["destination"] = dst
		}
		target = src
	default:
		target = firstFileEntity(lower, a)
		params["path"] = target
	}

	return &models.Task{
		Category:            models.CategoryFile,
		Complexity:          a.Complexity,
		RiskLevel:           a.Risk,
		ContextRequirements: a.ContextNeeds,
		Description:         fmt.Sprintf("%s files: %s", strings.ToUpper(verb[:1])+verb[1:], target),
		SuccessCriteria:     "File operation completed",
		Steps: []models.Step{{
			Action:         action,
			Application:    "system",
			Parameters:     params,
			ExpectedResult: "File operation completed",
		}},
	}
}

// firstFileEntity returns the earliest path or filename mentioned in the
// utterance, or the utterance itself when nothing file-shaped was found.
func firstFileEntity(lower string, a intent.Analysis) string {
	ents := fileEntities(lower, a)
	if len(ents) > 0 {
		return ents[0]
	}
	return lower
}

// fileEntities returns the analyzer's path and filename entities in the
// order they appear in the utterance.
func fileEntities(lower string, a intent.Analysis) []string {
	ents := append([]string{}, a.Entities.Paths...)
	ents = append(ents, a.Entities.Filenames...)
	sort.SliceStable(ents, func(i, j int) bool {
		return strings.Index(lower, strings.ToLower(ents[i])) < strings.Index(lower, strings.ToLower(ents[j]))
	})
	return ents
}

// fileOperands splits a copy/move utterance into source and destination.
// "move notes.txt to /tmp/archive" pivots on the last " to "; entities on
// the left are the source, entities (or the remaining text) on the right
// are the destination. Without a pivot the first two entities are used in
// order. The destination may come back empty when the utterance names none.
func fileOperands(lower string, a intent.Analysis) (src, dst string) {
	ents := fileEntities(lower, a)
	if idx := strings.LastIndex(lower, " to "); idx >= 0 {
		left, right := lower[:idx], lower[idx+len(" to "):]
		for _, ent := range ents {
			le := strings.ToLower(ent)
			switch {
			case src == "" && strings.Contains(left, le):
				src = ent
			case dst == "" && strings.Contains(right, le):
				dst = ent
			}
		}
		if src == "" {
			src = trimFileFiller(left)
		}
		if dst == "" {
			dst = strings.TrimSpace(strings.Trim(right, ".,!?\"'"))
		}
		return src, dst
	}
	if len(ents) > 0 {
		src = ents[0]
	} else {
		src = lower
	}
	if len(ents) > 1 {
		dst = ents[1]
	}
	return src, dst
}

// trimFileFiller strips the leading verb and article words off a source
// clause so "move the file report" becomes "report".
func trimFileFiller(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 {
		switch words[0] {
		case "move", "copy", "the", "a", "my", "please", "file", "folder":
			words = words[1:]
		default:
			return strings.Join(words, " ")
		}
	}
	return strings.TrimSpace(s)
}

func defaultTask(lower string, a intent.Analysis) *models.Task {
	return &models.Task{
		Category:            models.CategoryUniversal,
		Complexity:          a.Complexity,
		RiskLevel:           a.Risk,
		ContextRequirements: a.ContextNeeds,
		Description:         "Analyze the command and report what it would take",
		SuccessCriteria:     "Command analyzed",
		Steps: []models.Step{{
			Action:         ActionAnalyzeCommand,
			Application:    "system",
			Parameters:     map[string]string{"command": lower},
			ExpectedResult: "Analysis produced",
		}},
	}
}

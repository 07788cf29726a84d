package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/facekit/internal/actions"
	"github.com/dshills/facekit/internal/document"
	"github.com/dshills/facekit/internal/event"
)

// defaultSteps is the session run when demo is given no action names.
var defaultSteps = []string{
	actions.LoadName,
	actions.TransformName,
	actions.ResetCameraName,
	actions.CurvatureName,
	actions.MetadataName,
	actions.RenameLandmarkName,
	actions.RemeshName,
	actions.UndoName,
	actions.UndoName,
	actions.RedoName,
	actions.LandmarksName,
}

var defaultAnswers = []string{
	"Open model=face.obj",
	"subject=S01",
	"Landmark=nose",
	"New name=pronasale",
}

// answerBook answers prompts by label, in order. A label without answers
// left cancels the prompt.
type answerBook struct {
	mu      sync.Mutex
	answers map[string][]string
}

func parseAnswers(answers []string) (*answerBook, error) {
	b := &answerBook{answers: make(map[string][]string)}
	for _, a := range answers {
		label, value, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("invalid answer %q: want label=value", a)
		}
		label = strings.TrimSpace(label)
		b.answers[label] = append(b.answers[label], value)
	}
	return b, nil
}

func (b *answerBook) Prompt(label, _ string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.answers[label]
	if len(queue) == 0 {
		return "", false
	}
	b.answers[label] = queue[1:]
	return queue[0], true
}

type demoOptions struct {
	answers []string
	timeout time.Duration
}

func newDemoCmd(root *rootOptions) *cobra.Command {
	opts := &demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo [action...]",
		Short: "Run a scripted headless session",
		Long: `Run the named actions in order against synthetic face models and report
the events each one raised. Prompts are answered from --answer flags; without
action names a default session is run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringArrayVar(&opts.answers, "answer", nil, "Prompt answer as label=value (repeatable)")
	cmd.Flags().DurationVar(&opts.timeout, "step-timeout", 30*time.Second, "Limit on each step including background work")
	return cmd
}

func runDemo(cmd *cobra.Command, root *rootOptions, opts *demoOptions, steps []string) error {
	answers := opts.answers
	if len(answers) == 0 {
		answers = defaultAnswers
	}
	book, err := parseAnswers(answers)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		steps = defaultSteps
	}

	s, err := newSession(root, cmd.ErrOrStderr(), actions.Collaborators{
		Loader:    sphereLoader{},
		Prompter:  book,
		Chooser:   actions.NextDocument,
		Transform: actions.CenterAtOrigin,
		Detector:  extremaDetector{},
		Remesher:  midpointRemesher{},
	})
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	var (
		mu     sync.Mutex
		raised event.Group
	)
	s.eng.OnStatus(func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		p.Println(p.muted.Render("    " + msg))
	})
	s.eng.OnDispatch(func(g event.Group, _ *document.Document) {
		mu.Lock()
		raised = raised.Union(g)
		mu.Unlock()
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.run(ctx, func(ctx context.Context) error {
		p.Title("facekit demo")
		for i, name := range steps {
			mu.Lock()
			raised = event.None
			p.Printf("%2d. %s\n", i+1, p.bold.Render(name))
			mu.Unlock()

			started, err := s.eng.Execute(ctx, name)
			if err != nil {
				return err
			}
			sctx, cancel := context.WithTimeout(ctx, opts.timeout)
			err = s.eng.WaitIdle(sctx)
			cancel()
			if err != nil {
				return fmt.Errorf("waiting for %s: %w", name, err)
			}

			mu.Lock()
			if started {
				p.Println("    " + p.ok.Render("ran") + " " + raised.Name())
			} else {
				p.Println("    " + p.warning.Render("not run"))
			}
			mu.Unlock()
		}
		return s.summary(ctx, p)
	})
}

// summary prints the open documents, read on the coordinator.
func (s *session) summary(ctx context.Context, p *printer) error {
	var rows [][]string
	err := s.eng.Call(ctx, func() {
		for _, doc := range s.eng.Documents().List() {
			doc.RLock()
			row := []string{
				doc.Name,
				strconv.Itoa(len(doc.Geometry)),
				strconv.Itoa(len(doc.Connectivity.Faces)),
				strings.Join(sortedKeys(doc.Landmarks), ","),
			}
			doc.RUnlock()

			_, cached := s.set.Curvature.Values(doc.ID)
			row = append(row,
				strconv.Itoa(s.eng.History().UndoCount(doc.ID)),
				strconv.Itoa(s.eng.History().RedoCount(doc.ID)),
				strconv.FormatBool(cached),
			)
			rows = append(rows, row)
		}
	})
	if err != nil {
		return err
	}

	p.Println("")
	p.Title("Documents")
	p.Table([]string{"NAME", "VERTICES", "FACES", "LANDMARKS", "UNDO", "REDO", "CURVATURE"}, rows)
	return nil
}

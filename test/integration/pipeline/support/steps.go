package support

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
)

// RegisterSteps binds the step definitions of the page pipeline features.
func (c *TestContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a page with (\d+) speech bubbles?$`, c.aPageWithBubbles)
	sc.Step(`^the page is "([^"]*)" to be translated to "([^"]*)"$`, c.thePageLanguages)
	sc.Step(`^detection fails$`, c.detectionFails)
	sc.Step(`^the "([^"]*)" engine reads:$`, c.theEngineReads)
	sc.Step(`^the translator rejects "([^"]*)"$`, c.theTranslatorRejects)

	sc.Step(`^the page is processed$`, c.thePageIsProcessed)

	sc.Step(`^processing succeeds$`, c.processingSucceeds)
	sc.Step(`^processing fails$`, c.processingFails)
	sc.Step(`^the page state is "([^"]*)"$`, c.thePageStateIs)
	sc.Step(`^the page has (\d+) regions?$`, c.thePageHasRegions)
	sc.Step(`^region (\d+) has status "([^"]*)"$`, c.regionHasStatus)
	sc.Step(`^region (\d+) reads "([^"]*)" from the "([^"]*)" engine$`, c.regionReadsFrom)
	sc.Step(`^region (\d+) is translated as "([^"]*)"$`, c.regionIsTranslatedAs)
	sc.Step(`^the translator was called (\d+) times?$`, c.theTranslatorWasCalled)
	sc.Step(`^the summary counts (\d+) translated and (\d+) failed regions?$`, c.theSummaryCounts)
}

func (c *TestContext) aPageWithBubbles(n int) error {
	c.Bubbles = n
	return nil
}

func (c *TestContext) thePageLanguages(src, dst string) error {
	c.SourceLang, c.TargetLang = src, dst
	return nil
}

func (c *TestContext) detectionFails() error {
	c.DetectionErr = errors.New("detector exploded")
	return nil
}

// theEngineReads scripts one answer per bubble in reading order. An empty
// text cell yields an empty candidate, "-" yields no candidate at all.
func (c *TestContext) theEngineReads(name string, table *godog.Table) error {
	if !engine.Known(name) {
		return fmt.Errorf("unknown engine %q", name)
	}
	e := c.engineNamed(name)
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 2 {
			return fmt.Errorf("row %d: want text and confidence", i)
		}
		text := row.Cells[0].Value
		if text == "-" {
			e.answers = append(e.answers, nil)
			continue
		}
		conf, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		e.answers = append(e.answers, &engine.Candidate{Engine: name, Text: text, Confidence: conf})
	}
	return nil
}

func (c *TestContext) theTranslatorRejects(text string) error {
	c.FailingTexts[text] = true
	return nil
}

func (c *TestContext) thePageIsProcessed() error {
	return c.Process(context.Background())
}

func (c *TestContext) processingSucceeds() error {
	if c.LastErr != nil {
		return fmt.Errorf("expected success, got %w", c.LastErr)
	}
	return nil
}

func (c *TestContext) processingFails() error {
	if c.LastErr == nil {
		return errors.New("expected processing to fail")
	}
	return nil
}

func (c *TestContext) thePageStateIs(state string) error {
	if c.Result == nil {
		return errors.New("no result")
	}
	if got := string(c.Result.State); got != state {
		return fmt.Errorf("page state: got %q, want %q", got, state)
	}
	return nil
}

func (c *TestContext) thePageHasRegions(n int) error {
	if c.Result == nil {
		return errors.New("no result")
	}
	if len(c.Result.Regions) != n {
		return fmt.Errorf("got %d regions, want %d", len(c.Result.Regions), n)
	}
	return nil
}

// region looks up a region by its one-based number.
func (c *TestContext) region(n int) (pipeline.RegionResult, error) {
	if c.Result == nil {
		return pipeline.RegionResult{}, errors.New("no result")
	}
	if n < 1 || n > len(c.Result.Regions) {
		return pipeline.RegionResult{}, fmt.Errorf("no region %d (page has %d)", n, len(c.Result.Regions))
	}
	return c.Result.Regions[n-1], nil
}

func (c *TestContext) regionHasStatus(n int, status string) error {
	r, err := c.region(n)
	if err != nil {
		return err
	}
	if string(r.Status) != status {
		return fmt.Errorf("region %d status: got %q, want %q (error %q)", n, r.Status, status, r.Error)
	}
	return nil
}

func (c *TestContext) regionReadsFrom(n int, text, name string) error {
	r, err := c.region(n)
	if err != nil {
		return err
	}
	if r.Text != text || r.Engine != name {
		return fmt.Errorf("region %d: got %q from %q, want %q from %q", n, r.Text, r.Engine, text, name)
	}
	return nil
}

func (c *TestContext) regionIsTranslatedAs(n int, translation string) error {
	r, err := c.region(n)
	if err != nil {
		return err
	}
	if r.Translation != translation {
		return fmt.Errorf("region %d translation: got %q, want %q", n, r.Translation, translation)
	}
	return nil
}

func (c *TestContext) theTranslatorWasCalled(n int) error {
	if got := c.TranslatorCalls.Load(); got != int64(n) {
		return fmt.Errorf("translator called %d times, want %d", got, n)
	}
	return nil
}

func (c *TestContext) theSummaryCounts(translated, failed int) error {
	s := c.Result.Summary
	if s.TranslatedRegions != translated || s.FailedRegions != failed {
		return fmt.Errorf("summary: %d translated, %d failed; want %d and %d",
			s.TranslatedRegions, s.FailedRegions, translated, failed)
	}
	return nil
}

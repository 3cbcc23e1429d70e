package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codecoach/config"
	"codecoach/models"
	"codecoach/session"
)

// coach runs a headless practice session against the configured backends:
// it streams the live transcript, requests periodic AI feedback on the code
// in the given file, and prints each feedback record as it lands.
func main() {
	configPath := flag.String("config", "./config/config.yml", "path to config file")
	codePath := flag.String("code", "", "path to the code file under evaluation")
	question := flag.String("question", "", "interview question context")
	flag.Parse()

	if *codePath == "" {
		fmt.Fprintln(os.Stderr, "usage: coach -code <file> [-config <file>] [-question <text>]")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	code, err := ioutil.ReadFile(*codePath)
	if err != nil {
		log.Fatalf("Failed to read code file: %v", err)
	}

	s := session.New(session.Config{
		ChannelURL:    cfg.Session.ChannelURL,
		EvaluationURL: cfg.Session.EvaluationURL,
		Language:      cfg.Session.Language,
		Question:      *question,
	})
	s.SetCode(string(code))
	s.Start()
	log.Printf("Session started (channel %s, evaluation %s)", cfg.Session.ChannelURL, cfg.Session.EvaluationURL)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	lastSegmentID := ""
	seenFeedback := ""
	for {
		select {
		case <-ticker.C:
			// Reload the code file so edits feed the next evaluation
			if updated, err := ioutil.ReadFile(*codePath); err == nil {
				s.SetCode(string(updated))
			}

			// The transcript is a bounded ring, so positions shift once it
			// fills; resume after the last printed segment ID instead.
			segments := s.Transcript()
			for _, segment := range unseenSegments(segments, lastSegmentID) {
				fmt.Printf("[transcript] %s\n", segment.Text)
			}
			if len(segments) > 0 {
				lastSegmentID = segments[len(segments)-1].ID
			}

			if feedback := s.Feedback(); len(feedback) > 0 && feedback[0].ID != seenFeedback {
				seenFeedback = feedback[0].ID
				printFeedback(feedback[0])
			}
		case sig := <-signals:
			log.Printf("Received signal %v, resetting session", sig)
			s.Reset()
			return
		}
	}
}

// unseenSegments returns the segments after lastID, or the whole slice when
// lastID has already been evicted from the ring.
func unseenSegments(segments []models.TranscriptSegment, lastID string) []models.TranscriptSegment {
	if lastID == "" {
		return segments
	}
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].ID == lastID {
			return segments[i+1:]
		}
	}
	return segments
}

func printFeedback(record models.FeedbackRecord) {
	fmt.Printf("\n=== Feedback (score %d/10) ===\n", record.Score)
	printList("Strengths", record.Strengths)
	printList("Improvements", record.Improvements)
	printList("Optimizations", record.Optimizations)
	fmt.Printf("Code: %s\n", record.CodeAnalysis)
	fmt.Printf("Speech: %s\n\n", record.SpeechAnalysis)
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

// paneld runs a live panel conversation and serves the operator dashboard.
//
// Agent profiles and turn-taking rules come from a JSON config file; API keys
// come from the environment (or a .env file):
//
//	OPENROUTER_API_KEY  utterance generation and urgency classification
//	DEEPGRAM_API_KEY    speech synthesis and audience transcription
//
// Without a Deepgram key the panel still runs, silently, which is handy for
// rehearsing a config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	orchestration "github.com/aircasthq/panel-core/core"
	"github.com/aircasthq/panel-core/core/agents"
	"github.com/aircasthq/panel-core/core/audio/miniaudio"
	"github.com/aircasthq/panel-core/core/events"
	"github.com/aircasthq/panel-core/core/interruptions/llm"
	"github.com/aircasthq/panel-core/core/producers/openrouter"
	"github.com/aircasthq/panel-core/core/speechtotext"
	sttdeepgram "github.com/aircasthq/panel-core/core/speechtotext/deepgram"
	"github.com/aircasthq/panel-core/core/texttospeech"
	ttsdeepgram "github.com/aircasthq/panel-core/core/texttospeech/deepgram"
	"github.com/aircasthq/panel-core/internal/dashboard"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	configPath := flag.String("config", "panel.json", "path to the panel configuration file")
	address := flag.String("address", ":8080", "dashboard listen address")
	activeAgents := flag.String("agents", "", "comma-separated agent ids to seat initially (default: all)")
	model := flag.String("model", "", "override the utterance generation model")
	noAudio := flag.Bool("no-audio", false, "run without audio playback and audience capture")
	printSchema := flag.Bool("print-config-schema", false, "print the configuration JSON schema and exit")
	flag.Parse()

	if *printSchema {
		schema, err := agents.ConfigSchemaJSON()
		if err != nil {
			log.Fatalf("failed to render config schema: %v", err)
		}
		fmt.Println(string(schema))
		return
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env file: %v", err)
	}

	openrouterKey := os.Getenv("OPENROUTER_API_KEY")
	if openrouterKey == "" {
		log.Fatal("OPENROUTER_API_KEY is not set")
	}
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")

	config, err := agents.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load panel config: %v", err)
	}

	registry, err := agents.NewRegistry(config.Agents)
	if err != nil {
		log.Fatalf("failed to build agent registry: %v", err)
	}

	producerOpts := []openrouter.Option{}
	if *model != "" {
		producerOpts = append(producerOpts, openrouter.WithModel(*model))
	}
	if len(config.PromptTemplates) > 0 {
		producerOpts = append(producerOpts, openrouter.WithPromptTemplates(config.PromptTemplates))
	}
	producer := openrouter.NewClient(openrouterKey, producerOpts...)

	orchestratorOpts := []orchestration.OrchestratorOption{
		orchestration.WithUtteranceProducer(producer),
		orchestration.WithUrgencyClassifier(llm.NewClassifier(openrouterKey)),
		orchestration.WithPolicy(policyFromConfig(config)),
	}
	if *activeAgents != "" {
		ids := strings.Split(*activeAgents, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		orchestratorOpts = append(orchestratorOpts, orchestration.WithActiveAgents(ids...))
	}

	var audioClient *miniaudio.Client
	serverOpts := []dashboard.ServerOption{}
	if deepgramKey != "" && !*noAudio {
		audioClient, err = miniaudio.NewClient()
		if err != nil {
			log.Fatalf("failed to initialize audio: %v", err)
		}
		defer audioClient.Close()
		serverOpts = append(serverOpts, dashboard.WithDeviceLister(audioClient))

		synthesizer := ttsdeepgram.NewClient(deepgramKey,
			texttospeech.WithEncodingInfo(audioClient.EncodingInfo()),
			texttospeech.WithSpeechAudioCallback(func(chunk []byte) {
				if err := audioClient.SendAudio(chunk); err != nil {
					log.Println("Failed to queue panel audio:", err)
				}
			}),
			texttospeech.WithSpeechEndedCallback(func() {
				if err := audioClient.AwaitPlayback(); err != nil {
					log.Println("Failed to await playback:", err)
				}
			}),
		)

		transcriber := sttdeepgram.NewTranscriptionClient(deepgramKey,
			speechtotext.WithEncodingInfo(audioClient.EncodingInfo()),
		)

		orchestratorOpts = append(orchestratorOpts,
			orchestration.WithSpeechSynthesizer(synthesizer),
			orchestration.WithAudienceFeed(transcriber),
		)
	} else if deepgramKey == "" {
		log.Println("DEEPGRAM_API_KEY is not set, running without voice")
	}

	orchestrator, err := orchestration.New(registry, orchestratorOpts...)
	if err != nil {
		log.Fatalf("failed to build orchestrator: %v", err)
	}
	defer orchestrator.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := dashboard.NewHub()
	go hub.Run(ctx.Done())

	runOpts := []orchestration.RunOption{
		orchestration.WithEventCallback(hub.Broadcast),
	}
	if audioClient != nil {
		// An interrupted turn must stop sounding immediately, not after the
		// queued chunks drain.
		runOpts = append(runOpts, orchestration.WithTurnInterruptedCallback(func(events.TurnInterrupted) {
			audioClient.ClearBuffer()
		}))
	}

	if err := orchestrator.Run(ctx, runOpts...); err != nil {
		log.Fatalf("failed to launch orchestrator: %v", err)
	}

	if audioClient != nil {
		err := audioClient.StartAudienceCapture(ctx, func(chunk []byte) {
			if err := orchestrator.SendAudio(chunk); err != nil {
				log.Println("Failed to forward audience audio:", err)
			}
		})
		if err != nil {
			log.Fatalf("failed to start audience capture: %v", err)
		}
		defer func() {
			if err := audioClient.StopAudienceCapture(); err != nil {
				log.Println("Failed to stop audience capture:", err)
			}
		}()
	}

	server := dashboard.NewServer(orchestrator, hub, serverOpts...)

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("dashboard listening on %s", *address)
		serverErrors <- server.Start(*address)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("dashboard server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// policyFromConfig overlays the config's turn-taking rules onto the defaults.
// Zero values mean "not specified".
func policyFromConfig(config agents.Config) orchestration.TurnTakingPolicy {
	policy := orchestration.DefaultTurnTakingPolicy()

	rules := config.TurnTakingRules
	if rules.MaxTurnDuration > 0 {
		policy.MaxTurnDuration = time.Duration(rules.MaxTurnDuration * float64(time.Second))
	}
	if rules.MinTimeBetweenTurns > 0 {
		policy.MinTimeBetweenTurns = time.Duration(rules.MinTimeBetweenTurns * float64(time.Second))
	}
	if rules.InterruptionThreshold > 0 {
		policy.InterruptionThreshold = rules.InterruptionThreshold
	}
	if config.MaxHistoryLength > 0 {
		policy.MaxHistoryLength = config.MaxHistoryLength
	}
	return policy
}

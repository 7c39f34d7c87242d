package main

import (
	"fmt"

	"github.com/supabase-community/supabase-go"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/logger"
	"github.com/lateralab/soup-backend/internal/model"
)

// Seeds the starter puzzle catalog into the Supabase `puzzles` table.
// Existing rows with the same id are overwritten, so this is safe to re-run.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		log.Fatal().Msg("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}

	sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Supabase client")
	}

	puzzles := []model.Puzzle{
		{
			ID:      "voice_recording_mystery",
			Title:   "The Recording",
			Content: "A man hears a recording of his own voice and immediately calls the police. Why?",
			Hint:    "The recording was not made by him, but someone used his voice.",
			FullAnswer: "The man is a famous radio host. Criminals used old recordings of his voice " +
				"to fake a ransom message, making it sound like he was reading the demands himself. " +
				"When he heard the ransom message and recognized his own voice saying things he had " +
				"never said, he realized his identity was being used by criminals, so he called the police.",
		},
		{
			ID:      "silent_concert",
			Title:   "The Silent Concert",
			Content: "A singer finishes a concert. The audience gives a standing ovation, but nobody heard her sing. How is that possible?",
			Hint:    "People were listening through something.",
			FullAnswer: "It was a silent concert where everyone wore wireless headphones. The singer's " +
				"microphone was connected only to the headphones, not to any speakers. A person outside " +
				"the venue would hear nothing, but the audience enjoyed the full performance.",
		},
		{
			ID:      "wrong_voicemail",
			Title:   "The Voicemail",
			Content: "A man listens to a voicemail and instantly knows the caller is lying, even though he recognizes the voice. Why?",
			Hint:    "Think about when the voicemail was recorded.",
			FullAnswer: "The voicemail claims it was recorded at a certain place and time, but the man " +
				"knows that at that exact time, the caller was on a long flight with no signal. Because " +
				"he knows the real schedule, he realizes the voicemail must be pre-recorded or " +
				"manipulated and therefore a lie.",
		},
	}

	fmt.Printf("=== Seeding %d Puzzles ===\n", len(puzzles))

	_, _, err = sb.From("puzzles").
		Insert(puzzles, true, "id", "minimal", "").
		Execute()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed puzzles")
	}

	for _, p := range puzzles {
		fmt.Printf("  upserted %s (%s)\n", p.ID, p.Title)
	}
	fmt.Println("Done")
}

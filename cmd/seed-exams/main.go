package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/database"
	"github.com/stemsi/lms-backend/internal/logger"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, db, err := database.NewMongoDatabase(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	examRepo := repository.NewExamRepository(db)

	fmt.Println("=== Seeding sample exams ===")

	exams := []*model.Exam{
		{
			Name:            "Matematika Dasar",
			Description:     "Latihan aritmetika dan bilangan prima",
			Type:            model.ExamTypeMCQ,
			ClassID:         "XII-TKJ-2",
			DurationMinutes: 30,
			MCQ: []model.MCQ{
				{Question: "Berapakah 7 x 8?", Answers: []string{"54", "56", "64", "48"}, CorrectAnswer: []int{1}},
				{Question: "Manakah yang bilangan prima?", Answers: []string{"2", "9", "11", "15"}, CorrectAnswer: []int{0, 2}},
				{Question: "Akar kuadrat dari 81?", Answers: []string{"9", "8", "7"}, CorrectAnswer: []int{0}},
				{Question: "Hasil dari 2 pangkat 5?", Answers: []string{"10", "25", "32", "64"}, CorrectAnswer: []int{2}},
			},
		},
		{
			Name:            "Esai Bahasa Indonesia",
			Description:     "Tulis esai singkat tentang lingkungan",
			Type:            model.ExamTypeEssay,
			ClassID:         "XII-TKJ-2",
			DurationMinutes: 60,
		},
	}

	for _, exam := range exams {
		if err := examRepo.Create(ctx, exam); err != nil {
			log.Fatal().Err(err).Str("exam", exam.Name).Msg("Failed to create exam")
		}
		fmt.Printf("Created %-5s exam %q with ID: %s (%d questions)\n", exam.Type, exam.Name, exam.ID, len(exam.MCQ))
	}

	fmt.Println("=== Done ===")
}

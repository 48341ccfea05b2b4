package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/lms-backend/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionExams is the document collection holding exam definitions.
const CollectionExams = "exams"

const queryTimeout = 5 * time.Second

type mcqDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Question      string             `bson:"question"`
	Answers       []string           `bson:"answers"`
	CorrectAnswer []int              `bson:"correct_answer"`
}

type examDocument struct {
	ID              primitive.ObjectID `bson:"_id"`
	ExamName        string             `bson:"exam_name"`
	ExamDescription string             `bson:"exam_description"`
	ExamType        interface{}        `bson:"exam_type"`
	ClassID         string             `bson:"class_id"`
	Additional      string             `bson:"additional,omitempty"`
	Duration        int                `bson:"duration"`
	MCQ             []mcqDocument      `bson:"mcq"`
}

// ExamRepository reads exam definitions from the document store.
type ExamRepository struct {
	coll *mongo.Collection
}

// NewExamRepository creates a new ExamRepository over the exams collection.
func NewExamRepository(db *mongo.Database) *ExamRepository {
	return &ExamRepository{coll: db.Collection(CollectionExams)}
}

// GetByID loads an exam by its hex object id. Ids that are not valid object
// ids cannot exist and resolve to model.ErrExamNotFound.
func (r *ExamRepository) GetByID(ctx context.Context, id string) (*model.Exam, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrExamNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc examDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrExamNotFound
		}
		return nil, fmt.Errorf("find exam %s: %w", id, err)
	}

	return doc.toModel(), nil
}

func (d *examDocument) toModel() *model.Exam {
	exam := &model.Exam{
		ID:              d.ID.Hex(),
		Name:            d.ExamName,
		Description:     d.ExamDescription,
		Type:            model.NormalizeExamType(d.ExamType),
		ClassID:         d.ClassID,
		Additional:      d.Additional,
		DurationMinutes: d.Duration,
		MCQ:             make([]model.MCQ, len(d.MCQ)),
	}
	for i, q := range d.MCQ {
		mcq := model.MCQ{
			Question:      q.Question,
			Answers:       q.Answers,
			CorrectAnswer: q.CorrectAnswer,
		}
		if !q.ID.IsZero() {
			mcq.ID = q.ID.Hex()
		}
		exam.MCQ[i] = mcq
	}
	return exam
}

// Create inserts an exam and fills in the generated ids. Questions get their
// own object ids so answer keys stay stable when questions are reordered.
func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	doc := fromModel(exam)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	exam.ID = doc.ID.Hex()
	for i := range exam.MCQ {
		exam.MCQ[i].ID = doc.MCQ[i].ID.Hex()
	}
	return nil
}

func fromModel(exam *model.Exam) *examDocument {
	doc := &examDocument{
		ID:              primitive.NewObjectID(),
		ExamName:        exam.Name,
		ExamDescription: exam.Description,
		ExamType:        exam.Type.String(),
		ClassID:         exam.ClassID,
		Additional:      exam.Additional,
		Duration:        exam.DurationMinutes,
		MCQ:             make([]mcqDocument, len(exam.MCQ)),
	}
	for i, q := range exam.MCQ {
		doc.MCQ[i] = mcqDocument{
			ID:            primitive.NewObjectID(),
			Question:      q.Question,
			Answers:       q.Answers,
			CorrectAnswer: q.CorrectAnswer,
		}
	}
	return doc
}

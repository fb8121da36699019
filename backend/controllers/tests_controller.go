package controllers

import (
	"strconv"
	"time"

	"philosofium/backend/assessment"
	"philosofium/backend/config"
	"philosofium/backend/models"
	"philosofium/backend/repository"
	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type TestsController struct {
	Service *assessment.Service
	Catalog *repository.CatalogRepository
	Cfg     *config.Config
}

func NewTestsController(svc *assessment.Service, catalog *repository.CatalogRepository, cfg *config.Config) *TestsController {
	return &TestsController{Service: svc, Catalog: catalog, Cfg: cfg}
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func attemptView(a *models.TestAttempt) fiber.Map {
	if a == nil {
		return nil
	}
	return fiber.Map{
		"id":             a.ID,
		"test_id":        a.TestID,
		"user_id":        a.UserID,
		"attempt_number": a.AttemptNumber,
		"status":         a.Status,
		"started_at":     a.StartedAt,
		"completed_at":   a.CompletedAt,
		"total_points":   a.TotalPoints,
		"earned_points":  a.EarnedPoints,
		"percentage":     a.Percentage,
		"is_passed":      a.IsPassed,
		"time_spent":     a.TimeSpent,
		"time_limit":     a.TimeLimit,
	}
}

func answerView(a models.TestAnswer) fiber.Map {
	return fiber.Map{
		"question_id":   a.QuestionID,
		"option_id":     a.OptionID,
		"text_answer":   a.TextAnswer,
		"is_correct":    a.IsCorrect,
		"points_earned": a.PointsEarned,
		"answered_at":   a.AnsweredAt,
	}
}

func testView(t *models.Test) fiber.Map {
	return fiber.Map{
		"id":                       t.ID,
		"title":                    t.Title,
		"description":              t.Description,
		"course_id":                t.CourseID,
		"lesson_id":                t.LessonID,
		"time_limit":               t.TimeLimit,
		"max_attempts":             t.MaxAttempts,
		"passing_score":            t.PassingScore,
		"shuffle_questions":        t.ShuffleQuestions,
		"shuffle_options":          t.ShuffleOptions,
		"show_results_immediately": t.ShowResultsImmediately,
		"is_published":             t.IsPublished,
		"available_from":           t.AvailableFrom,
		"available_until":          t.AvailableUntil,
	}
}

func (tc *TestsController) GetAvailableTests(c *fiber.Ctx) error {
	tests, err := tc.Service.AvailableTests(c.UserContext())
	if err != nil {
		return utils.HandleError(c, err)
	}

	result := make([]fiber.Map, 0, len(tests))
	for i := range tests {
		result = append(result, testView(&tests[i]))
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (tc *TestsController) CheckEligibility(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	testID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid test ID")
	}

	elig, err := tc.Service.CanAttempt(c.UserContext(), testID, userID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, elig)
}

func (tc *TestsController) StartTest(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	testID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid test ID")
	}

	attempt, err := tc.Service.Start(c.UserContext(), userID, testID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, attemptView(attempt))
}

func (tc *TestsController) GetActiveSession(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	testID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid test ID")
	}

	attempt, err := tc.Service.ActiveSession(c.UserContext(), userID, testID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"attempt": attemptView(attempt)})
}

func (tc *TestsController) GetQuestions(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	testID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid test ID")
	}

	questions, err := tc.Service.Present(c.UserContext(), testID, userID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, questions)
}

func (tc *TestsController) SubmitTest(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	attemptID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid attempt ID")
	}

	var input struct {
		Answers []assessment.SubmittedAnswer `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	// only the owner may submit
	attempt, err := tc.Service.Attempt(c.UserContext(), attemptID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if attempt.UserID != userID {
		return utils.HandleError(c, assessment.NotFound("attempt", attemptID))
	}

	completed, err := tc.Service.Submit(c.UserContext(), attemptID, input.Answers)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, attemptView(completed))
}

func (tc *TestsController) GetAttemptResult(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	attemptID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid attempt ID")
	}

	res, err := tc.Service.Result(c.UserContext(), attemptID, userID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	answers := make([]fiber.Map, 0, len(res.Answers))
	for _, a := range res.Answers {
		answers = append(answers, answerView(a))
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"attempt":         attemptView(res.Attempt),
		"answers":         answers,
		"correct_options": res.CorrectOptions,
	})
}

type testInput struct {
	Title                  *string    `json:"title"`
	Description            *string    `json:"description"`
	CourseID               *uint      `json:"course_id"`
	LessonID               *uint      `json:"lesson_id"`
	TimeLimit              *int       `json:"time_limit"`
	MaxAttempts            *int       `json:"max_attempts"`
	PassingScore           *float64   `json:"passing_score"`
	ShuffleQuestions       *bool      `json:"shuffle_questions"`
	ShuffleOptions         *bool      `json:"shuffle_options"`
	ShowResultsImmediately *bool      `json:"show_results_immediately"`
	IsPublished            *bool      `json:"is_published"`
	AvailableFrom          *time.Time `json:"available_from"`
	AvailableUntil         *time.Time `json:"available_until"`

	// Clear names optional settings to reset to unset.
	Clear []string `json:"clear"`
}

var clearableSettings = map[string]bool{
	"time_limit":      true,
	"max_attempts":    true,
	"available_from":  true,
	"available_until": true,
}

func (in *testInput) validate() map[string]string {
	errs := map[string]string{}
	if in.Title != nil && *in.Title == "" {
		errs["title"] = "must not be empty"
	}
	if in.PassingScore != nil && (*in.PassingScore < 0 || *in.PassingScore > 100) {
		errs["passing_score"] = "must be between 0 and 100"
	}
	if in.TimeLimit != nil && *in.TimeLimit < 0 {
		errs["time_limit"] = "must not be negative"
	}
	if in.MaxAttempts != nil && *in.MaxAttempts < 1 {
		errs["max_attempts"] = "must be at least 1"
	}
	if in.AvailableFrom != nil && in.AvailableUntil != nil && in.AvailableUntil.Before(*in.AvailableFrom) {
		errs["available_until"] = "must not be before available_from"
	}
	for _, name := range in.Clear {
		if !clearableSettings[name] {
			errs["clear"] = "unknown setting " + name
		}
	}
	return errs
}

func (in *testInput) apply(t *models.Test) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.CourseID != nil {
		t.CourseID = in.CourseID
	}
	if in.LessonID != nil {
		t.LessonID = in.LessonID
	}
	if in.TimeLimit != nil {
		t.TimeLimit = in.TimeLimit
	}
	if in.MaxAttempts != nil {
		t.MaxAttempts = in.MaxAttempts
	}
	if in.PassingScore != nil {
		t.PassingScore = *in.PassingScore
	}
	if in.ShuffleQuestions != nil {
		t.ShuffleQuestions = *in.ShuffleQuestions
	}
	if in.ShuffleOptions != nil {
		t.ShuffleOptions = *in.ShuffleOptions
	}
	if in.ShowResultsImmediately != nil {
		t.ShowResultsImmediately = *in.ShowResultsImmediately
	}
	if in.IsPublished != nil {
		t.IsPublished = *in.IsPublished
	}
	if in.AvailableFrom != nil {
		t.AvailableFrom = in.AvailableFrom
	}
	if in.AvailableUntil != nil {
		t.AvailableUntil = in.AvailableUntil
	}
	for _, name := range in.Clear {
		switch name {
		case "time_limit":
			t.TimeLimit = nil
		case "max_attempts":
			t.MaxAttempts = nil
		case "available_from":
			t.AvailableFrom = nil
		case "available_until":
			t.AvailableUntil = nil
		}
	}
}

func (tc *TestsController) CreateTest(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input testInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Title == nil {
		return utils.ValidationError(c, map[string]string{"title": "is required"})
	}
	if errs := input.validate(); len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	test := models.Test{AuthorID: userID, PassingScore: 60}
	input.apply(&test)

	if err := tc.Catalog.CreateTest(c.UserContext(), &test); err != nil {
		return utils.InternalServerError(c, "Could not create test")
	}
	return utils.Created(c, testView(&test))
}

func (tc *TestsController) UpdateTestSettings(c *fiber.Ctx) error {
	testID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid test ID")
	}

	var input testInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := input.validate(); len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	test, err := tc.Catalog.GetTestDefinition(c.UserContext(), testID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	input.apply(test)

	if err := tc.Catalog.SaveTest(c.UserContext(), test); err != nil {
		return utils.InternalServerError(c, "Could not update test settings")
	}
	return utils.Success(c, fiber.StatusOK, testView(test))
}

type optionInput struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type questionInput struct {
	Type     models.QuestionType `json:"type"`
	Question string              `json:"question"`
	Points   int                 `json:"points"`
	Options  []optionInput       `json:"options"`
}

func (in *questionInput) validate() map[string]string {
	errs := map[string]string{}
	if in.Type == "" {
		in.Type = models.QuestionSingleChoice
	}
	if !in.Type.Valid() {
		errs["type"] = "must be single_choice, true_false or essay"
		return errs
	}
	if in.Question == "" {
		errs["question"] = "must not be empty"
	}
	if in.Points < 0 {
		errs["points"] = "must not be negative"
	}

	switch in.Type {
	case models.QuestionEssay:
		if len(in.Options) > 0 {
			errs["options"] = "essay questions have no options"
		}
	default:
		if in.Type == models.QuestionTrueFalse && len(in.Options) != 2 {
			errs["options"] = "true/false questions need exactly 2 options"
			break
		}
		if len(in.Options) < 2 {
			errs["options"] = "at least 2 options are required"
			break
		}
		correct := 0
		for _, o := range in.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			errs["options"] = "exactly one option must be correct"
		}
	}
	return errs
}

func (tc *TestsController) AddQuestion(c *fiber.Ctx) error {
	testID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid test ID")
	}

	input := questionInput{Points: 1}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := input.validate(); len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	if _, err := tc.Catalog.GetTestDefinition(c.UserContext(), testID); err != nil {
		return utils.HandleError(c, err)
	}

	question := models.TestQuestion{
		TestID:   testID,
		Type:     input.Type,
		Question: input.Question,
		Points:   input.Points,
	}
	for _, o := range input.Options {
		question.Options = append(question.Options, models.QuestionOption{Text: o.Text, IsCorrect: o.IsCorrect})
	}

	if err := tc.Catalog.AddQuestion(c.UserContext(), &question); err != nil {
		return utils.InternalServerError(c, "Could not create question")
	}

	options := make([]fiber.Map, 0, len(question.Options))
	for _, o := range question.Options {
		options = append(options, fiber.Map{"id": o.ID, "text": o.Text, "is_correct": o.IsCorrect})
	}
	return utils.Created(c, fiber.Map{
		"id":       question.ID,
		"type":     question.Type,
		"question": question.Question,
		"points":   question.Points,
		"order":    question.SequenceOrder,
		"options":  options,
	})
}

func (tc *TestsController) AbandonAttempt(c *fiber.Ctx) error {
	attemptID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid attempt ID")
	}

	attempt, err := tc.Service.Abandon(c.UserContext(), attemptID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, attemptView(attempt))
}

func (tc *TestsController) SweepExpiredAttempts(c *fiber.Ctx) error {
	n, err := tc.Service.AbandonExpired(c.UserContext())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"abandoned": n})
}

package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	asmmodels "asamblea/internal/assembly/models"
	asmservice "asamblea/internal/assembly/service"
	usermodels "asamblea/internal/registration/models"
	regservice "asamblea/internal/registration/service"
	regmodels "asamblea/internal/registry/models"
	"asamblea/internal/tally"
	votingmodels "asamblea/internal/voting/models"
	votingservice "asamblea/internal/voting/service"
	dErrors "asamblea/pkg/domain-errors"
)

// maxClaimBody bounds multipart claim uploads (proxy files included).
const maxClaimBody = 32 << 20

// Handler exposes the registration, voting and lifecycle services over HTTP.
type Handler struct {
	registration *regservice.Service
	voting       *votingservice.Service
	assemblies   *asmservice.Service
	auth         *Auth
	log          *slog.Logger
}

func NewHandler(
	registration *regservice.Service,
	voting *votingservice.Service,
	assemblies *asmservice.Service,
	auth *Auth,
	log *slog.Logger,
) *Handler {
	return &Handler{
		registration: registration,
		voting:       voting,
		assemblies:   assemblies,
		auth:         auth,
		log:          log,
	}
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func (h *Handler) operatorLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	token, err := h.auth.Login(req.User, req.Password)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"token": token})
}

type registryView struct {
	ID          regmodels.RegistryID `json:"id"`
	Unit        string               `json:"unit"`
	Group       string               `json:"group,omitempty"`
	OwnerName   string               `json:"owner_name,omitempty"`
	Coefficient float64              `json:"coefficient"`
	Claimed     bool                 `json:"claimed"`
	VoteBlocked bool                 `json:"vote_blocked"`
}

func toRegistryView(r regmodels.Registry) registryView {
	return registryView{
		ID:          r.ID,
		Unit:        r.Unit,
		Group:       r.Group,
		OwnerName:   r.OwnerName,
		Coefficient: r.Coefficient,
		Claimed:     r.Claimed,
		VoteBlocked: r.VoteBlocked,
	}
}

type userView struct {
	Document        string                      `json:"document"`
	AssemblyID      string                      `json:"assembly_id"`
	Representations []usermodels.Representation `json:"representations"`
	CreatedAt       time.Time                   `json:"created_at"`
}

func toUserView(u usermodels.AssemblyUser) userView {
	return userView{
		Document:        u.Document,
		AssemblyID:      u.AssemblyID,
		Representations: u.Representations,
		CreatedAt:       u.CreatedAt,
	}
}

type resolveRequest struct {
	Document string `json:"document"`
}

type resolveResponse struct {
	User      *userView      `json:"user,omitempty"`
	Claimable []registryView `json:"claimable,omitempty"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decode(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	res, err := h.registration.Resolve(r.Context(), req.Document, chi.URLParam(r, "assemblyID"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	out := resolveResponse{}
	if res.ExistingUser != nil {
		view := toUserView(*res.ExistingUser)
		out.User = &view
	}
	for _, reg := range res.Claimable {
		out.Claimable = append(out.Claimable, toRegistryView(reg))
	}
	respond(w, http.StatusOK, out)
}

type claimTarget struct {
	RegistryID regmodels.RegistryID `json:"registry_id"`
	Role       usermodels.Role      `json:"role"`
	Manual     bool                 `json:"manual,omitempty"`
}

type claimPayload struct {
	Document string        `json:"document"`
	Targets  []claimTarget `json:"targets"`
}

// claim accepts JSON, or multipart/form-data with a "payload" JSON field and
// per-registry proxy files under "file_<registryID>".
func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	req, err := h.claimRequest(r)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	user, err := h.registration.Claim(r.Context(), req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusCreated, toUserView(user))
}

func (h *Handler) claimRequest(r *http.Request) (regservice.ClaimRequest, error) {
	assemblyID := chi.URLParam(r, "assemblyID")

	var payload claimPayload
	files := map[regmodels.RegistryID]*claimFile{}
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxClaimBody); err != nil {
			return regservice.ClaimRequest{}, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body")
		}
		if err := unmarshalField(r.FormValue("payload"), &payload); err != nil {
			return regservice.ClaimRequest{}, err
		}
		for _, target := range payload.Targets {
			headers := r.MultipartForm.File["file_"+string(target.RegistryID)]
			if len(headers) == 0 {
				continue
			}
			f, err := headers[0].Open()
			if err != nil {
				return regservice.ClaimRequest{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable proxy file")
			}
			files[target.RegistryID] = &claimFile{name: headers[0].Filename, reader: f}
		}
	} else if err := decode(r, &payload); err != nil {
		return regservice.ClaimRequest{}, err
	}

	req := regservice.ClaimRequest{Document: payload.Document, AssemblyID: assemblyID}
	for _, target := range payload.Targets {
		t := regservice.ClaimTarget{
			RegistryID: target.RegistryID,
			Role:       target.Role,
			Manual:     target.Manual,
		}
		if f := files[target.RegistryID]; f != nil {
			t.ProxyFileName = f.name
			t.ProxyFile = f.reader
		}
		req.Targets = append(req.Targets, t)
	}
	return req, nil
}

type claimFile struct {
	name   string
	reader io.Reader
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func unmarshalField(raw string, into any) error {
	if raw == "" {
		return dErrors.New(dErrors.CodeBadRequest, "missing payload field")
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid payload field")
	}
	return nil
}

type voteRequest struct {
	Document   string                                       `json:"document"`
	Block      *votingmodels.Answer                         `json:"block,omitempty"`
	Individual map[regmodels.RegistryID]votingmodels.Answer `json:"individual,omitempty"`
}

func (h *Handler) submitVotes(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decode(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	applied, err := h.voting.Submit(r.Context(), votingservice.SubmitRequest{
		QuestionID: chi.URLParam(r, "questionID"),
		Document:   req.Document,
		Block:      req.Block,
		Individual: req.Individual,
	})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"recorded": applied})
}

type questionView struct {
	ID         string                      `json:"id"`
	AssemblyID string                      `json:"assembly_id"`
	Text       string                      `json:"text"`
	Type       votingmodels.QuestionType   `json:"type"`
	Options    []string                    `json:"options,omitempty"`
	Status     votingmodels.QuestionStatus `json:"status"`
}

func toQuestionView(q votingmodels.Question) questionView {
	return questionView{
		ID:         q.ID,
		AssemblyID: q.AssemblyID,
		Text:       q.Text,
		Type:       q.Type,
		Options:    q.Options,
		Status:     q.Status,
	}
}

type createQuestionRequest struct {
	Text    string                    `json:"text"`
	Type    votingmodels.QuestionType `json:"type"`
	Options []string                  `json:"options,omitempty"`
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	q, err := h.voting.CreateQuestion(r.Context(), votingservice.CreateQuestionRequest{
		AssemblyID: chi.URLParam(r, "assemblyID"),
		Text:       req.Text,
		Type:       req.Type,
		Options:    req.Options,
	})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusCreated, toQuestionView(q))
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.voting.ListByAssembly(r.Context(), chi.URLParam(r, "assemblyID"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	out := make([]questionView, 0, len(questions))
	for _, q := range questions {
		out = append(out, toQuestionView(q))
	}
	respond(w, http.StatusOK, out)
}

type questionStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) setQuestionStatus(w http.ResponseWriter, r *http.Request) {
	var req questionStatusRequest
	if err := decode(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	status, err := votingmodels.ParseStatus(req.Status)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	q, err := h.voting.SetStatus(r.Context(), chi.URLParam(r, "questionID"), status)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, toQuestionView(q))
}

type optionResultView struct {
	Option           string  `json:"option"`
	VotesCount       int     `json:"votes_count"`
	VotedCoefficient float64 `json:"voted_coefficient"`
	DisplayPercent   float64 `json:"display_percent"`
}

type tallyView struct {
	QuestionID          string             `json:"question_id"`
	Options             []optionResultView `json:"options"`
	ParticipationQuorum float64            `json:"participation_quorum"`
}

func toTallyView(res tally.Result) tallyView {
	out := tallyView{QuestionID: res.QuestionID, ParticipationQuorum: res.ParticipationQuorum}
	for _, opt := range res.Options {
		out.Options = append(out.Options, optionResultView{
			Option:           opt.Option,
			VotesCount:       opt.VotesCount,
			VotedCoefficient: opt.VotedCoefficient,
			DisplayPercent:   opt.DisplayPercent,
		})
	}
	return out
}

func (h *Handler) questionTally(w http.ResponseWriter, r *http.Request) {
	res, err := h.voting.TallyQuestion(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, toTallyView(res))
}

func (h *Handler) quorum(w http.ResponseWriter, r *http.Request) {
	quorum, err := h.voting.Quorum(r.Context(), chi.URLParam(r, "assemblyID"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, map[string]float64{"quorum": quorum})
}

type assemblyView struct {
	ID          string               `json:"id"`
	EntityID    string               `json:"entity_id"`
	Status      asmmodels.Status     `json:"status"`
	ScheduledAt time.Time            `json:"scheduled_at,omitzero"`
	VotingMode  asmmodels.VotingMode `json:"voting_mode,omitempty"`
	Config      asmmodels.Config     `json:"config"`
}

func toAssemblyView(a asmmodels.Assembly) assemblyView {
	return assemblyView{
		ID:          a.ID,
		EntityID:    a.EntityID,
		Status:      a.Status,
		ScheduledAt: a.ScheduledAt,
		VotingMode:  a.VotingMode,
		Config:      a.Config,
	}
}

type createAssemblyRequest struct {
	EntityID    string               `json:"entity_id"`
	ScheduledAt time.Time            `json:"scheduled_at,omitzero"`
	VotingMode  asmmodels.VotingMode `json:"voting_mode,omitempty"`
	Config      asmmodels.Config     `json:"config"`
}

func (h *Handler) createAssembly(w http.ResponseWriter, r *http.Request) {
	var req createAssemblyRequest
	if err := decode(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	a, err := h.assemblies.Create(r.Context(), asmservice.CreateRequest{
		EntityID:    req.EntityID,
		ScheduledAt: req.ScheduledAt,
		VotingMode:  req.VotingMode,
		Config:      req.Config,
	})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusCreated, toAssemblyView(a))
}

func (h *Handler) getAssembly(w http.ResponseWriter, r *http.Request) {
	a, err := h.assemblies.Get(r.Context(), chi.URLParam(r, "assemblyID"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, toAssemblyView(a))
}

// transition builds a handler for one operator lifecycle action.
func (h *Handler) transition(fn func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "assemblyID")
		if err := fn(r.Context(), id); err != nil {
			respondError(w, h.log, err)
			return
		}
		a, err := h.assemblies.Get(r.Context(), id)
		if err != nil {
			respondError(w, h.log, err)
			return
		}
		respond(w, http.StatusOK, toAssemblyView(a))
	}
}

type toggleRequest struct {
	Value bool `json:"value"`
}

// registryToggle builds a handler for one operator registry toggle.
func (h *Handler) registryToggle(fn func(ctx context.Context, id string, reg regmodels.RegistryID, value bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req toggleRequest
		if err := decode(r, &req); err != nil {
			respondError(w, h.log, err)
			return
		}
		err := fn(r.Context(),
			chi.URLParam(r, "assemblyID"),
			regmodels.RegistryID(chi.URLParam(r, "registryID")),
			req.Value)
		if err != nil {
			respondError(w, h.log, err)
			return
		}
		respond(w, http.StatusNoContent, nil)
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

/* ─── Legacy wire types ──────────────────────────────────────────────── */

// The legacy clinical API keeps its Django-era shapes: Spanish field names,
// decimals rendered as strings, free-form category values. These structs
// exist only inside this file; everything leaves through the parse functions
// in models.go as typed values.

type legacyPersona struct {
	ID     string `json:"id"`
	Genero string `json:"genero"`
	Edad   *int   `json:"edad"`
}

type legacyFicha struct {
	IDPersona      string  `json:"id_persona"`
	Peso           *string `json:"peso"`
	Altura         *string `json:"altura"`
	NivelActividad string  `json:"nivel_actividad"`
	TipoDialisis   string  `json:"tipo_dialisis"`
}

type legacyMinuta struct {
	ID              string  `json:"id"`
	Nombre          string  `json:"nombre"`
	Genero          string  `json:"genero"`
	BajoEnSodio     bool    `json:"bajo_en_sodio"`
	BajoEnPotasio   bool    `json:"bajo_en_potasio"`
	BajoEnFosforo   bool    `json:"bajo_en_fosforo"`
	BajoEnProteinas bool    `json:"bajo_en_proteinas"`
	Calorias        *string `json:"calorias"`
	TipoDialisis    string  `json:"tipo_dialisis"`
}

type legacyDetalleMinuta struct {
	ID           int    `json:"id"`
	MinutaID     string `json:"minuta_id"`
	DiaSemana    int    `json:"dia_semana"`
	TipoComida   string `json:"tipo_comida"`
	NombreComida string `json:"nombre_comida"`
	Descripcion  string `json:"descripcion"`
}

// parseDecimal handles the API's string-rendered decimal fields. Garbage or
// missing values come back nil and degrade to the estimator's defaults.
func parseDecimal(s *string) *float64 {
	if s == nil {
		return nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &v
}

/* ─── Client ─────────────────────────────────────────────────────────── */

// legacyClient implements profileStore, planCatalog, and mealStore against
// the legacy clinical API. No retry policy is configured: a failed call fails
// the whole matching attempt, to be retried only by explicit user action.
type legacyClient struct {
	http *resty.Client
	log  *zap.Logger
}

func newLegacyClient(baseURL string, log *zap.Logger) *legacyClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Accept", "application/json")
	return &legacyClient{http: client, log: log}
}

// PatientProfile fetches the persona record and its medical file and folds
// them into one typed profile. Either record missing means the patient has
// not completed profile setup — errNoProfile, not a transient failure.
func (c *legacyClient) PatientProfile(ctx context.Context, personaID string) (*patientProfile, error) {
	var persona legacyPersona
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&persona).
		Get(fmt.Sprintf("/personas/%s/", personaID))
	if err != nil {
		return nil, fmt.Errorf("fetch persona: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errNoProfile
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch persona: status %d", resp.StatusCode())
	}

	var fichas []legacyFicha
	resp, err = c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"id_persona": personaID, "exact_match": "true"}).
		SetResult(&fichas).
		Get("/fichas-medicas/")
	if err != nil {
		return nil, fmt.Errorf("fetch medical file: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch medical file: status %d", resp.StatusCode())
	}
	if len(fichas) == 0 {
		return nil, errNoProfile
	}
	ficha := fichas[0]

	return &patientProfile{
		PersonaID: personaID,
		Sex:       parseSex(persona.Genero),
		WeightKG:  parseDecimal(ficha.Peso),
		HeightM:   parseDecimal(ficha.Altura),
		Age:       persona.Edad,
		Activity:  parseActivityLevel(ficha.NivelActividad),
		Dialysis:  parseDialysis(ficha.TipoDialisis),
	}, nil
}

// CandidatePlans fetches the full plan catalog. Plans without a parseable
// calorie figure are kept (the scorer treats 0 as a large deviation) so a
// catalog data bug surfaces as a low score, not a vanished plan.
func (c *legacyClient) CandidatePlans(ctx context.Context) ([]dietPlan, error) {
	var minutas []legacyMinuta
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&minutas).
		Get("/minutas/")
	if err != nil {
		return nil, fmt.Errorf("fetch plan catalog: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch plan catalog: status %d", resp.StatusCode())
	}

	plans := make([]dietPlan, 0, len(minutas))
	for _, m := range minutas {
		var calories float64
		if v := parseDecimal(m.Calorias); v != nil {
			calories = *v
		}
		plans = append(plans, dietPlan{
			ID:            m.ID,
			Name:          m.Nombre,
			Sex:           parseSex(m.Genero),
			Dialysis:      parseDialysis(m.TipoDialisis),
			LowSodium:     m.BajoEnSodio,
			LowPotassium:  m.BajoEnPotasio,
			LowPhosphorus: m.BajoEnFosforo,
			LowProtein:    m.BajoEnProteinas,
			Calories:      calories,
		})
	}
	return plans, nil
}

// MealsForPlanAndDay fetches a plan's meals for one day of the week. The
// caller re-filters by day regardless of what comes back.
func (c *legacyClient) MealsForPlanAndDay(ctx context.Context, planID string, dayOfWeek int) ([]meal, error) {
	var detalles []legacyDetalleMinuta
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"minuta_id":  planID,
			"dia_semana": strconv.Itoa(dayOfWeek),
		}).
		SetResult(&detalles).
		Get("/detalles-minuta/")
	if err != nil {
		return nil, fmt.Errorf("fetch meals: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch meals: status %d", resp.StatusCode())
	}

	meals := make([]meal, 0, len(detalles))
	for _, d := range detalles {
		meals = append(meals, meal{
			ID:          strconv.Itoa(d.ID),
			PlanID:      d.MinutaID,
			DayOfWeek:   d.DiaSemana,
			MealType:    d.TipoComida,
			Name:        d.NombreComida,
			Description: d.Descripcion,
		})
	}
	return meals, nil
}

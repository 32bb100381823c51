package predictor

// Thresholds holds the decision constants used by the predictors. The source
// values are kept as independent knobs on purpose: the IMMEDIATE action
// threshold and the alert publish threshold are distinct settings.
type Thresholds struct {
	// Immediate is the probability at or above which the recommended action
	// window is IMMEDIATE and the fallback urgency is CRITICAL.
	Immediate float64 `json:"immediate"`
	// Soon is the probability at or above which the recommended action
	// window is WITHIN_7_DAYS and the fallback urgency is HIGH.
	Soon float64 `json:"soon"`
	// Medium is the probability at or above which the fallback urgency is
	// MEDIUM.
	Medium float64 `json:"medium"`
	// TempWarning and TempCritical bound the failure rule temperature terms.
	TempWarning  float64 `json:"temp_warning"`
	TempCritical float64 `json:"temp_critical"`
	// AnomalyTempCritical is the over-temperature cutoff of the anomaly rule
	// list. It is configured separately from TempCritical.
	AnomalyTempCritical float64 `json:"anomaly_temp_critical"`
	// OutlierScore is the composite rule-score above which a snapshot is
	// classified GENERIC_OUTLIER_HIGH.
	OutlierScore float64 `json:"outlier_score"`
	// OverdueDays is the age past which maintenance is considered overdue.
	OverdueDays float64 `json:"overdue_days"`
}

// SetDefaults applies the source decision constants.
func (t *Thresholds) SetDefaults() {
	if t.Immediate == 0 {
		t.Immediate = 0.85
	}
	if t.Soon == 0 {
		t.Soon = 0.60
	}
	if t.Medium == 0 {
		t.Medium = 0.40
	}
	if t.TempWarning == 0 {
		t.TempWarning = 50
	}
	if t.TempCritical == 0 {
		t.TempCritical = 65
	}
	if t.AnomalyTempCritical == 0 {
		t.AnomalyTempCritical = 60
	}
	if t.OutlierScore == 0 {
		t.OutlierScore = 70
	}
	if t.OverdueDays == 0 {
		t.OverdueDays = 180
	}
}

// Costs parameterizes the maintenance cost/benefit computation.
type Costs struct {
	// Preventive is the unit cost of a preventive maintenance visit. A
	// snapshot metadata entry "preventive_cost" overrides it per charger.
	Preventive float64 `json:"preventive"`
	// Failure is the cost of an unplanned failure; the expected failure cost
	// scales it by the failure probability.
	Failure float64 `json:"failure"`
}

// SetDefaults applies the source cost constants.
func (c *Costs) SetDefaults() {
	if c.Preventive == 0 {
		c.Preventive = 150
	}
	if c.Failure == 0 {
		c.Failure = 5000
	}
}

// Config holds artifact locations and decision constants for the registry.
type Config struct {
	// BasePath is the directory holding trained model artifacts. Absence of
	// an artifact is not an error: the rule-based variant is used instead.
	BasePath    string     `json:"base_path"`
	Failure     string     `json:"failure_artifact"`
	Anomaly     string     `json:"anomaly_artifact"`
	Maintenance string     `json:"maintenance_artifact"`
	Thresholds  Thresholds `json:"thresholds"`
	Costs       Costs      `json:"costs"`
}

// SetDefaults fills artifact names and decision constants.
func (c *Config) SetDefaults() {
	if c.BasePath == "" {
		c.BasePath = "./models"
	}
	if c.Failure == "" {
		c.Failure = "failure_predictor.json"
	}
	if c.Anomaly == "" {
		c.Anomaly = "anomaly_detector.json"
	}
	if c.Maintenance == "" {
		c.Maintenance = "maintenance_optimizer.json"
	}
	c.Thresholds.SetDefaults()
	c.Costs.SetDefaults()
}

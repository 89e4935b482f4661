package schema

// Family ids understood by the engine.
const (
	FamilyFD   = "fd"
	FamilyAFD  = "afd"
	FamilyCFD  = "cfd"
	FamilyIND  = "ind"
	FamilyAIND = "aind"
	FamilyUCC  = "ucc"
	FamilyAUCC = "aucc"
	FamilyOD   = "od"
	FamilyAR   = "ar"
	FamilyDD   = "dd"
	FamilyNAR  = "nar"
	FamilyDC   = "dc"
	FamilyAC   = "ac"
	FamilySFD  = "sfd"
	FamilyMD   = "md"
)

// AlgorithmOrder is the standalone column-ordering step. It is the one task
// kind that produces a new dataset handle consumed by every task after it.
const AlgorithmOrder = "order"

// Default builds the registry of all known families. Parameter defaults and
// permitted variants follow the external engine's catalogue.
func Default() *Registry {
	families := []FamilySchema{
		{
			Family:           FamilyFD,
			DefaultAlgorithm: "hyfd",
			Algorithms: []string{
				"hyfd", "dfd", "aid", "depminer", "eulerfd", "fastfds",
				"fdep", "fun", "pfdtane", "pyro", "tane",
			},
			Params: map[string]ParamSpec{
				"max_lhs": {Type: TypeInt, Domain: NonNegativeInt()},
				"error":   {Type: TypeFloat, Domain: UnitInterval()},
			},
		},
		{
			Family:           FamilyAFD,
			DefaultAlgorithm: "pyro",
			Algorithms:       []string{"pyro", "tane"},
			Params: map[string]ParamSpec{
				"error":   {Type: TypeFloat, Default: 0.05, Domain: UnitInterval()},
				"max_lhs": {Type: TypeInt, Domain: NonNegativeInt()},
			},
		},
		{
			Family:           FamilyCFD,
			DefaultAlgorithm: "fd_first",
			Algorithms:       []string{"fd_first"},
			Params: map[string]ParamSpec{
				"cfd_minsup":  {Type: TypeInt, Default: 1, Domain: PositiveInt()},
				"cfd_minconf": {Type: TypeFloat, Default: 0.9, Domain: UnitInterval()},
				"cfd_max_lhs": {Type: TypeInt, Default: 3, Domain: PositiveInt()},
				"cfd_substrategy": {
					Type:    TypeString,
					Default: "depth-first",
					Domain:  OneOf("depth-first", "breadth-first"),
				},
				"tuples_number":  {Type: TypeInt, Domain: NonNegativeInt()},
				"columns_number": {Type: TypeInt, Domain: NonNegativeInt()},
			},
		},
		{
			Family:           FamilyIND,
			DefaultAlgorithm: "spider",
			Algorithms:       []string{"spider", "faida"},
			Params: map[string]ParamSpec{
				"error": {Type: TypeFloat, Domain: UnitInterval()},
			},
		},
		{
			Family:           FamilyAIND,
			DefaultAlgorithm: "spider",
			Algorithms:       []string{"spider"},
			Params: map[string]ParamSpec{
				"error": {Type: TypeFloat, Default: 0.05, Domain: UnitInterval()},
			},
		},
		{
			Family:           FamilyUCC,
			DefaultAlgorithm: "hpivalid",
			Algorithms:       []string{"hpivalid", "pyroucc", "hyucc"},
			Params: map[string]ParamSpec{
				"error": {Type: TypeFloat, Domain: UnitInterval()},
			},
		},
		{
			Family:           FamilyAUCC,
			DefaultAlgorithm: "pyroucc",
			Algorithms:       []string{"pyroucc"},
			Params: map[string]ParamSpec{
				"error": {Type: TypeFloat, Default: 0.05, Domain: UnitInterval()},
			},
		},
		{
			Family:           FamilyOD,
			DefaultAlgorithm: "fastod",
			Algorithms:       []string{"fastod", "order"},
		},
		{
			Family:           FamilyAR,
			DefaultAlgorithm: "apriori",
			Algorithms:       []string{"apriori"},
			Params: map[string]ParamSpec{
				"input_format": {
					Type:    TypeString,
					Default: "tabular",
					Domain:  OneOf("singular", "tabular"),
				},
				"has_tid":           {Type: TypeBool, Default: false},
				"minsup":            {Type: TypeFloat, Default: 0.0, Domain: UnitInterval()},
				"minconf":           {Type: TypeFloat, Default: 0.5, Domain: UnitInterval()},
				"tid_column_index":  {Type: TypeInt, Default: 0, Domain: NonNegativeInt()},
				"item_column_index": {Type: TypeInt, Default: 1, Domain: NonNegativeInt()},
			},
		},
		{
			Family:           FamilyDD,
			DefaultAlgorithm: "split",
			Algorithms:       []string{"split"},
		},
		{
			Family:           FamilyNAR,
			DefaultAlgorithm: "des",
			Algorithms:       []string{"des"},
			Params: map[string]ParamSpec{
				"population_size":         {Type: TypeInt, Default: 100, Domain: PositiveInt()},
				"max_fitness_evaluations": {Type: TypeInt, Default: 1000, Domain: PositiveInt()},
				"minsup":                  {Type: TypeFloat, Default: 0.1, Domain: UnitInterval()},
				"minconf":                 {Type: TypeFloat, Default: 0.6, Domain: UnitInterval()},
				"crossover_probability":   {Type: TypeFloat, Default: 0.9, Domain: UnitInterval()},
				"differential_scale":      {Type: TypeFloat, Default: 0.5, Domain: NonNegativeFloat()},
			},
		},
		{
			Family:           FamilyDC,
			DefaultAlgorithm: "fastadc",
			Algorithms:       []string{"fastadc"},
			Params: map[string]ParamSpec{
				"evidence_threshold":   {Type: TypeFloat, Default: 0.0, Domain: UnitInterval()},
				"shard_length":         {Type: TypeInt, Default: 350, Domain: NonNegativeInt()},
				"allow_cross_columns":  {Type: TypeBool, Default: true},
				"minimum_shared_value": {Type: TypeFloat, Default: 0.3, Domain: UnitInterval()},
				"comparable_threshold": {Type: TypeFloat, Default: 0.1, Domain: UnitInterval()},
			},
		},
		{
			Family:           FamilyAC,
			DefaultAlgorithm: "acalgorithm",
			Algorithms:       []string{"acalgorithm"},
			Params: map[string]ParamSpec{
				"ac_seed":          {Type: TypeInt, Default: 0},
				"bumps_limit":      {Type: TypeInt, Default: 5, Domain: NonNegativeInt()},
				"p_fuzz":           {Type: TypeFloat, Default: 0.85, Domain: UnitInterval()},
				"fuzziness":        {Type: TypeFloat, Default: 0.2, Domain: UnitInterval()},
				"weight":           {Type: TypeFloat, Default: 0.05, Domain: UnitInterval()},
				"bin_operation":    {Type: TypeString, Default: "+", Domain: OneOf("+", "-", "*", "/")},
				"iterations_limit": {Type: TypeInt, Default: 10, Domain: NonNegativeInt()},
			},
		},
		{
			Family:           FamilySFD,
			DefaultAlgorithm: "sfdalgorithm",
			Algorithms:       []string{"sfdalgorithm"},
			Params: map[string]ParamSpec{
				"only_sfd":                        {Type: TypeBool, Default: false},
				"min_cardinality":                 {Type: TypeFloat, Default: 0.04, Domain: UnitInterval()},
				"min_sfd_strength":                {Type: TypeFloat, Default: 0.3, Domain: UnitInterval()},
				"max_false_positive_probability":  {Type: TypeFloat, Default: 0.02, Domain: UnitInterval()},
				"delta":                           {Type: TypeFloat, Default: 0.05, Domain: UnitInterval()},
				"min_skew_threshold":              {Type: TypeFloat, Default: 0.5, Domain: UnitInterval()},
				"min_structural_zeroes_amount":    {Type: TypeFloat, Default: 0.45, Domain: UnitInterval()},
				"max_different_values_proportion": {Type: TypeFloat, Default: 0.4, Domain: UnitInterval()},
				"max_lhs":                         {Type: TypeInt, Default: 3, Domain: PositiveInt()},
				"max_amount_of_categories":        {Type: TypeInt, Default: 20, Domain: PositiveInt()},
			},
		},
		{
			Family:           FamilyMD,
			DefaultAlgorithm: "hymd",
			Algorithms:       []string{"hymd"},
			Params: map[string]ParamSpec{
				"level_definition": {
					Type:    TypeString,
					Default: "cardinality",
					Domain:  OneOf("cardinality", "lattice"),
				},
				"max_cardinality":   {Type: TypeInt, Domain: NonNegativeInt()},
				"prune_nondisjoint": {Type: TypeBool, Default: true},
			},
		},
	}

	byName := make(map[string]FamilySchema, len(families))
	for _, f := range families {
		byName[f.Family] = f
	}

	return &Registry{
		families: byName,
		standalone: FamilySchema{
			DefaultAlgorithm: AlgorithmOrder,
			Algorithms:       []string{AlgorithmOrder},
		},
	}
}

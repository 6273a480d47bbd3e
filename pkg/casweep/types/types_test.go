package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{name: "integral float keeps decimal", v: Float(3.0), want: "3.0"},
		{name: "fractional float", v: Float(3.5), want: "3.5"},
		{name: "int", v: Int(900), want: "900"},
		{name: "string", v: String("UO2"), want: "UO2"},
		{name: "zero value", v: Value{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestValue_Float64(t *testing.T) {
	f, ok := Float(4.5).Float64()
	assert.True(t, ok)
	assert.InDelta(t, 4.5, f, 1e-12)

	f, ok = Int(580).Float64()
	assert.True(t, ok)
	assert.InDelta(t, 580.0, f, 1e-12)

	f, ok = String(" 2.25 ").Float64()
	assert.True(t, ok)
	assert.InDelta(t, 2.25, f, 1e-12)

	_, ok = String("fuel").Float64()
	assert.False(t, ok)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{input: "50", want: Int(50)},
		{input: "3.0", want: Float(3.0)},
		{input: "1e-3", want: Float(0.001)},
		{input: "zirc", want: String("zirc")},
		{input: "", want: String("")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseValue(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v (%s), want %v (%s)", got, got.Kind(), tt.want, tt.want.Kind())
		})
	}
}

func TestValue_JSON(t *testing.T) {
	in := []Value{Float(3.0), Int(900), String("UO2")}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[3.0, 900, "UO2"]`, string(data))
	assert.Contains(t, string(data), "3.0")

	var out []Value
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 3)
	for i := range in {
		assert.True(t, in[i].Equal(out[i]), "index %d: got %v want %v", i, out[i], in[i])
	}
}

func TestValue_YAML(t *testing.T) {
	var v struct {
		Enrichment Value `yaml:"enrichment"`
		FuelTemp   Value `yaml:"fuel_temp"`
		Clad       Value `yaml:"clad"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("enrichment: 3.0\nfuel_temp: 900\nclad: zirc\n"), &v))

	assert.Equal(t, KindFloat, v.Enrichment.Kind())
	assert.Equal(t, KindInt, v.FuelTemp.Kind())
	assert.Equal(t, KindString, v.Clad.Kind())

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(out), "enrichment: 3.0")
	assert.Contains(t, string(out), "fuel_temp: 900")
}

func TestVariables(t *testing.T) {
	vars := Variables{
		Axis("enrichment", Float(3.0), Float(3.5), Float(4.0), Float(4.5)),
		Scalar("fuel_temp", Int(900)),
		Scalar("moderator_temp", Int(580)),
		Scalar("burnup_steps", Int(50)),
	}

	require.NoError(t, vars.Validate())
	assert.Equal(t, []string{"enrichment", "fuel_temp", "moderator_temp", "burnup_steps"}, vars.Names())
	assert.Equal(t, []string{"enrichment"}, vars.Varying())
	assert.Equal(t, 4, vars.Combinations())

	enr, ok := vars.Get("enrichment")
	require.True(t, ok)
	assert.Equal(t, "[3.0, 3.5, 4.0, 4.5]", enr.String())

	ft, ok := vars.Get("fuel_temp")
	require.True(t, ok)
	assert.Equal(t, "900", ft.String())

	_, ok = vars.Get("missing")
	assert.False(t, ok)
}

func TestVariables_Validate(t *testing.T) {
	tests := []struct {
		name    string
		vars    Variables
		wantErr bool
	}{
		{name: "empty is valid", vars: nil},
		{name: "duplicate name", vars: Variables{Scalar("a", Int(1)), Scalar("a", Int(2))}, wantErr: true},
		{name: "empty name", vars: Variables{Scalar("", Int(1))}, wantErr: true},
		{name: "empty axis", vars: Variables{Axis("a")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vars.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.ErrorIs(t, Variables{Scalar("a", Int(1)), Scalar("a", Int(2))}.Validate(), ErrDuplicateVariable)
}

func TestTable(t *testing.T) {
	k := 1.25
	table := &Table{
		Variables: []string{"enrichment"},
		Outputs:   []string{"k_inf"},
		Rows: []Row{
			{Status: StatusDone, Inputs: map[string]Value{"enrichment": Float(3.0)}, Outputs: map[string]*float64{"k_inf": &k}},
			{Status: StatusFailed, Inputs: map[string]Value{"enrichment": Float(3.5)}, Outputs: map[string]*float64{"k_inf": nil}},
			{Status: StatusError, Inputs: map[string]Value{"enrichment": Float(4.0)}},
		},
	}

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 1, table.CountStatus(StatusDone))
	assert.Equal(t, 1, table.CountStatus(StatusFailed))
	assert.Equal(t, []string{"status", "enrichment", "k_inf"}, table.Columns())

	got, ok := table.Rows[0].Output("k_inf")
	assert.True(t, ok)
	assert.InDelta(t, 1.25, got, 1e-12)

	_, ok = table.Rows[1].Output("k_inf")
	assert.False(t, ok, "null output")

	_, ok = table.Rows[2].Output("k_inf")
	assert.False(t, ok, "absent output")

	assert.Equal(t, []string{"3.0", "3.5", "4.0"}, table.Column("enrichment"))
	assert.Equal(t, []string{"1.25", "", ""}, table.Column("k_inf"))
	assert.Equal(t, []string{"done", "failed", "error"}, table.Column("status"))

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
	assert.Nil(t, nilTable.Column("k_inf"))
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "1024", want: 1024},
		{input: "512B", want: 512},
		{input: "100K", want: 100 * KiB},
		{input: "10MB", want: 10 * MiB},
		{input: "10mb", want: 10 * MiB},
		{input: "64KiB", want: 64 * KiB},
		{input: "1.5G", want: 1610612736},
		{input: " 2G ", want: 2 * GiB},
		{input: "", wantErr: true},
		{input: "M", wantErr: true},
		{input: "-1M", wantErr: true},
		{input: "10X", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "0 B", FormatSize(-5))
	assert.Equal(t, "1.0 KiB", FormatSize(KiB))
	assert.Equal(t, "1.5 MiB", FormatSize(1536*KiB))
}

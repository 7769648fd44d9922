package datagen

import "fmt"

var animalWords = []string{
	"aardvark", "badger", "camel", "dingo", "eagle", "ferret", "gecko", "heron",
	"ibex", "jackal", "koala", "lemur", "marmot", "newt", "otter", "panda",
	"quail", "raven", "salmon", "tapir", "urchin", "vole", "walrus", "yak", "zebra",
}

var adjectiveWords = []string{
	"agile", "brave", "calm", "daring", "eager", "fierce", "gentle", "hasty",
	"idle", "jolly", "keen", "lively", "mellow", "nimble", "odd", "proud",
	"quiet", "rapid", "shy", "tidy", "upbeat", "vivid", "witty", "young", "zesty",
}

// wordName makes a unique name for id from a word list.
func wordName(words []string, id int64) string {
	word := words[id%int64(len(words))]
	if round := id / int64(len(words)); round > 0 {
		return fmt.Sprintf("%s-%d", word, round)
	}
	return word
}

type animalRow struct {
	AnimalID   int64  `parquet:"animal_id"`
	AnimalName string `parquet:"animal_name"`
}

type adjectiveRow struct {
	AdjectiveID   int64  `parquet:"adjective_id"`
	AdjectiveName string `parquet:"adjective_name"`
}

type relationRow struct {
	AnimalID    int64 `parquet:"animal_id"`
	AdjectiveID int64 `parquet:"adjective_id"`
	Values      int64 `parquet:"Values"`
}

type nullableRelationRow struct {
	AnimalID    int64  `parquet:"animal_id"`
	AdjectiveID int64  `parquet:"adjective_id"`
	Values      *int64 `parquet:"Values,optional"`
}

type queueRow struct {
	Timestamp int64   `parquet:"timestamp"`
	UserID    int64   `parquet:"user_id"`
	Value     float64 `parquet:"value"`
}

// WriteAnimals writes the animals lookup table with ids 0..n-1.
func WriteAnimals(path string, n int64) error {
	return writeRows(path, n, func(i int64) animalRow {
		return animalRow{AnimalID: i, AnimalName: wordName(animalWords, i)}
	})
}

// WriteAdjectives writes the adjectives lookup table with ids 0..n-1.
func WriteAdjectives(path string, n int64) error {
	return writeRows(path, n, func(i int64) adjectiveRow {
		return adjectiveRow{AdjectiveID: i, AdjectiveName: wordName(adjectiveWords, i)}
	})
}

// WriteRelation writes the relation table: uniformly random animal and adjective ids
// and a Values column. With nulls, NullPercent of Values are null.
func WriteRelation(path string, o Options, nulls bool) error {
	o = o.WithDefaults()
	r := newRand(o.Seed)

	if !nulls {
		return writeRows(path, o.Rows, func(int64) relationRow {
			return relationRow{
				AnimalID:    r.Int64N(o.Animals),
				AdjectiveID: r.Int64N(o.Adjectives),
				Values:      r.Int64N(1_000_000),
			}
		})
	}

	nullRate := o.nullPercent() / 100
	return writeRows(path, o.Rows, func(int64) nullableRelationRow {
		row := nullableRelationRow{
			AnimalID:    r.Int64N(o.Animals),
			AdjectiveID: r.Int64N(o.Adjectives),
		}
		v := r.Int64N(1_000_000)
		if r.Float64() >= nullRate {
			row.Values = &v
		}
		return row
	})
}

// WriteQueue writes a queue table with strictly increasing timestamps (nanoseconds) and
// random users, the input shape of as-of joins.
func WriteQueue(path string, rows, users int64, seed uint64) error {
	r := newRand(seed)
	var ts int64
	return writeRows(path, rows, func(int64) queueRow {
		ts += 1 + r.Int64N(1_000)
		return queueRow{Timestamp: ts, UserID: r.Int64N(users), Value: r.Float64() * 100}
	})
}

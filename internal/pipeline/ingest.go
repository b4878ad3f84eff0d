package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/domain/entity"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/schema"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

// rawTripRow mirrors the columns of the raw monthly trip files. Every column
// is optional at this layer; nullability is enforced by the declared
// contract, not by the decode.
type rawTripRow struct {
	VendorID       *int64   `parquet:"name=vendor_id,type=INT64,repetitiontype=OPTIONAL"`
	PickupTime     *int64   `parquet:"name=tpep_pickup_datetime,type=INT64,convertedtype=TIMESTAMP_MILLIS,repetitiontype=OPTIONAL"`
	DropoffTime    *int64   `parquet:"name=tpep_dropoff_datetime,type=INT64,convertedtype=TIMESTAMP_MILLIS,repetitiontype=OPTIONAL"`
	PassengerCount *int64   `parquet:"name=passenger_count,type=INT64,repetitiontype=OPTIONAL"`
	TripDistance   *float64 `parquet:"name=trip_distance,type=DOUBLE,repetitiontype=OPTIONAL"`
	PULocationID   *int64   `parquet:"name=pu_location_id,type=INT64,repetitiontype=OPTIONAL"`
	DOLocationID   *int64   `parquet:"name=do_location_id,type=INT64,repetitiontype=OPTIONAL"`
	PaymentType    *int64   `parquet:"name=payment_type,type=INT64,repetitiontype=OPTIONAL"`
	FareAmount     *float64 `parquet:"name=fare_amount,type=DOUBLE,repetitiontype=OPTIONAL"`
	TipAmount      *float64 `parquet:"name=tip_amount,type=DOUBLE,repetitiontype=OPTIONAL"`
	TotalAmount    *float64 `parquet:"name=total_amount,type=DOUBLE,repetitiontype=OPTIONAL"`
}

// toRecord converts a decoded raw row into the generic record the contract
// validates. Absent columns become nil values.
func (r rawTripRow) toRecord() schema.Record {
	rec := schema.Record{}
	putInt := func(name string, v *int64) {
		if v != nil {
			rec[name] = *v
		} else {
			rec[name] = nil
		}
	}
	putFloat := func(name string, v *float64) {
		if v != nil {
			rec[name] = *v
		} else {
			rec[name] = nil
		}
	}
	putTime := func(name string, v *int64) {
		if v != nil {
			rec[name] = time.UnixMilli(*v).UTC()
		} else {
			rec[name] = nil
		}
	}
	putInt("vendor_id", r.VendorID)
	putTime("tpep_pickup_datetime", r.PickupTime)
	putTime("tpep_dropoff_datetime", r.DropoffTime)
	putInt("passenger_count", r.PassengerCount)
	putFloat("trip_distance", r.TripDistance)
	putInt("pu_location_id", r.PULocationID)
	putInt("do_location_id", r.DOLocationID)
	putInt("payment_type", r.PaymentType)
	putFloat("fare_amount", r.FareAmount)
	putFloat("tip_amount", r.TipAmount)
	putFloat("total_amount", r.TotalAmount)
	return rec
}

// tripFromRecord builds the domain record from a validated generic record.
// Types are guaranteed by the contract; nullable fields default to zero.
func tripFromRecord(rec schema.Record) entity.TripRecord {
	t := entity.TripRecord{
		VendorID:     rec["vendor_id"].(int64),
		PickupTime:   rec["tpep_pickup_datetime"].(time.Time),
		DropoffTime:  rec["tpep_dropoff_datetime"].(time.Time),
		TripDistance: rec["trip_distance"].(float64),
		PULocationID: rec["pu_location_id"].(int64),
		DOLocationID: rec["do_location_id"].(int64),
		FareAmount:   rec["fare_amount"].(float64),
		TipAmount:    rec["tip_amount"].(float64),
		TotalAmount:  rec["total_amount"].(float64),
	}
	if v, ok := rec["passenger_count"].(int64); ok {
		t.PassengerCount = v
	}
	if v, ok := rec["payment_type"].(int64); ok {
		t.PaymentType = v
	}
	return t
}

// Ingestor reads raw trip files from the lake storage and admits them
// against the declared contract.
type Ingestor struct {
	conn   storage.StorageConnection
	bucket string
	prefix string
	schema schema.Schema
}

// NewIngestor builds an Ingestor for the raw trip prefix.
func NewIngestor(conn storage.StorageConnection, bucket, prefix string) *Ingestor {
	return &Ingestor{
		conn:   conn,
		bucket: bucket,
		prefix: prefix,
		schema: schema.TripSchema(),
	}
}

// IngestResult is the outcome of reading the raw trip files. Admitted
// records are grouped by pickup date; RejectedDates maps each date whose
// partition must not be processed this run to the contract violation that
// rejected it.
type IngestResult struct {
	ByDate        map[string][]entity.TripRecord
	RejectedDates map[string]error
	Admitted      int64
	Rejected      int64
}

// ReadTrips reads every raw trip file under the configured prefix, validates
// each file's batch against the contract, and returns the admitted records
// grouped by pickup date, restricted to the given range. A file violating
// the contract rejects that whole file's batch; the violation is scoped to
// the dates the file contributes to, so partitions fed only by valid files
// still process. A violating file whose rows cannot be attributed to a date
// (missing pickup timestamps) fails the ingestion outright.
func (i *Ingestor) ReadTrips(ctx context.Context, dr DateRange) (*IngestResult, error) {
	var objects []string
	err := i.conn.ListObjects(ctx, i.bucket, i.prefix, func(name string) error {
		if strings.HasSuffix(name, ".parquet") {
			objects = append(objects, name)
		}
		return nil
	})
	if err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to list raw trip files under '%s'", i.prefix), err, false, true)
	}
	// File order determines first-wins deduplication downstream.
	sort.Strings(objects)

	res := &IngestResult{
		ByDate:        make(map[string][]entity.TripRecord),
		RejectedDates: make(map[string]error),
	}
	for _, obj := range objects {
		raws, err := i.readRawFile(ctx, obj)
		if err != nil {
			return nil, err
		}

		records := make([]schema.Record, len(raws))
		for j, r := range raws {
			records[j] = r.toRecord()
		}
		if err := i.schema.Validate(records); err != nil {
			fileErr := exception.NewPipelineError(moduleName,
				fmt.Sprintf("raw trip file '%s' rejected", obj), err, false, false)
			dates, inRange, unattributed := fileDates(records, dr)
			if unattributed {
				return nil, fileErr
			}
			for _, d := range dates {
				if res.RejectedDates[d] == nil {
					res.RejectedDates[d] = fileErr
				}
			}
			res.Rejected += int64(inRange)
			logger.Warnf("Raw trip file '%s' rejected; partitions %v are excluded from this run.", obj, dates)
			continue
		}

		admitted := 0
		for _, rec := range records {
			t := tripFromRecord(rec)
			if !dr.Contains(t.PickupTime) {
				continue
			}
			res.ByDate[t.PickupDate()] = append(res.ByDate[t.PickupDate()], t)
			admitted++
		}
		res.Admitted += int64(admitted)
		logger.Debugf("Raw trip file '%s': %d rows decoded, %d admitted for the run's range.", obj, len(raws), admitted)
	}

	// A rejected date loses its whole partition, including rows already
	// admitted from valid files; the partition is not processed at all.
	for d := range res.RejectedDates {
		if rows, ok := res.ByDate[d]; ok {
			res.Admitted -= int64(len(rows))
			res.Rejected += int64(len(rows))
			delete(res.ByDate, d)
		}
	}
	return res, nil
}

// fileDates collects the in-range pickup dates of a batch. unattributed is
// true when any row carries no usable pickup timestamp, in which case the
// batch cannot be scoped to partitions.
func fileDates(records []schema.Record, dr DateRange) (dates []string, inRange int, unattributed bool) {
	seen := make(map[string]struct{})
	for _, rec := range records {
		ts, ok := rec["tpep_pickup_datetime"].(time.Time)
		if !ok {
			unattributed = true
			continue
		}
		if !dr.Contains(ts) {
			continue
		}
		inRange++
		d := ts.Format("2006-01-02")
		if _, dup := seen[d]; !dup {
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates, inRange, unattributed
}

// readRawFile downloads and decodes one raw parquet file.
func (i *Ingestor) readRawFile(ctx context.Context, objectName string) ([]rawTripRow, error) {
	rc, err := i.conn.Download(ctx, i.bucket, objectName)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to download raw trip file '%s'", objectName), err, false, true)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to read raw trip file '%s'", objectName), err, false, true)
	}

	fr := buffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(fr, new(rawTripRow), 1)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to open raw trip file '%s' as parquet", objectName), err, false, false)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]rawTripRow, num)
	if num > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, exception.NewPipelineError(moduleName,
				fmt.Sprintf("failed to decode raw trip file '%s'", objectName), err, false, false)
		}
	}
	return rows, nil
}

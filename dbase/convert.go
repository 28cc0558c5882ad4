package dbase

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// shortDateToBin encodes a "YYYYMMDD" string into the 3-byte short-date
// form used by D fields and the header's last-modification date:
// year-1900, month, day. Per spec §9 this is the corrected conversion
// path (the source's updateHeader bug of feeding raw seconds into this
// function directly is not reproduced).
func shortDateToBin(yyyymmdd string) ([3]byte, error) {
	var out [3]byte
	if len(yyyymmdd) != 8 {
		return out, newError("convert-shortdatetobin-1", fmt.Errorf("invalid short date %q", yyyymmdd))
	}
	year, err := strconv.Atoi(yyyymmdd[0:4])
	if err != nil {
		return out, newError("convert-shortdatetobin-2", err)
	}
	month, err := strconv.Atoi(yyyymmdd[4:6])
	if err != nil {
		return out, newError("convert-shortdatetobin-3", err)
	}
	day, err := strconv.Atoi(yyyymmdd[6:8])
	if err != nil {
		return out, newError("convert-shortdatetobin-4", err)
	}
	out[0] = byte(year - 1900)
	out[1] = byte(month)
	out[2] = byte(day)
	return out, nil
}

// shortDateToString decodes the 3-byte short-date form back to "YYYYMMDD".
func shortDateToString(raw [3]byte) string {
	return fmt.Sprintf("%04d%02d%02d", int(raw[0])+1900, raw[1], raw[2])
}

// secondsToShortDate converts a Unix timestamp to the "YYYYMMDD" string
// expected by shortDateToBin, used by the table engine when stamping the
// header's last-modification date at close.
func secondsToShortDate(unixSeconds int64) string {
	t := time.Unix(unixSeconds, 0).UTC()
	return t.Format("20060102")
}

// YMD2JD converts a Gregorian calendar date to its Julian day number,
// using the standard Fliegel & Van Flandern algorithm.
func YMD2JD(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// JD2YMD converts a Julian day number back to a Gregorian calendar date.
func JD2YMD(jd int) (year, month, day int) {
	a := jd + 32044
	b := (4*a + 3) / 146097
	c := a - (146097*b)/4
	d := (4*c + 3) / 1461
	e := c - (1461*d)/4
	m := (5*e + 2) / 153
	day = e - (153*m+2)/5 + 1
	month = m + 3 - 12*(m/10)
	year = 100*b + d - 4800 + m/10
	return
}

// julianPair is the {days, milliseconds-since-midnight} pair used by T/@
// (DateTime/Timestamp) fields, per spec §4.2/§GLOSSARY.
type julianPair struct {
	Days         int32
	Milliseconds uint32
}

// timeToJulianPair converts a time.Time to its Julian day pair.
func timeToJulianPair(t time.Time) julianPair {
	jd := YMD2JD(t.Year(), int(t.Month()), t.Day())
	ms := t.Hour()*3600000 + t.Minute()*60000 + t.Second()*1000 + t.Nanosecond()/1e6
	return julianPair{Days: int32(jd), Milliseconds: uint32(ms)}
}

// julianPairToTime converts a Julian day pair back to a time.Time (UTC).
func julianPairToTime(p julianPair) time.Time {
	year, month, day := JD2YMD(int(p.Days))
	ms := int(p.Milliseconds)
	hour := ms / 3600000
	ms -= hour * 3600000
	minute := ms / 60000
	ms -= minute * 60000
	second := ms / 1000
	ms -= second * 1000
	return time.Date(year, time.Month(month), day, hour, minute, second, ms*1e6, time.UTC)
}

// currencyToBin scales a decimal string by 10^4 and encodes it as a
// little-endian uint64, per spec §4.2's Y row. Per spec §9 this is the
// corrected behavior (the source's convertCurrencyToBin no-op, which
// never actually placed the decimal point, is not reproduced).
func currencyToBin(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	neg := false
	if strings.HasPrefix(value, "-") {
		neg = true
		value = value[1:]
	}
	whole, frac, _ := strings.Cut(value, ".")
	for len(frac) < 4 {
		frac += "0"
	}
	frac = frac[:4]
	if whole == "" {
		whole = "0"
	}
	scaled, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return 0, newError("convert-currencytobin-1", err)
	}
	if neg {
		return uint64(-int64(scaled)), nil
	}
	return scaled, nil
}

// currencyToString decodes a little-endian-scaled currency value back to
// its decimal string representation.
func currencyToString(raw uint64) string {
	signed := int64(raw)
	neg := signed < 0
	if neg {
		signed = -signed
	}
	whole := signed / 10000
	frac := signed % 10000
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%04d", sign, whole, frac)
}

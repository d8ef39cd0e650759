package nfc

import (
	"fmt"
	"slices"

	"github.com/golang/glog"
)

type otpOpKind int

const (
	otpReset  otpOpKind = iota
	otpCmd              // bare command
	otpParam            // 0x36, address, one data byte
	otpColumn           // address and data byte without a command
	otpRead             // 0x00 <column 0, row> 0x30
)

type otpOp struct {
	kind  otpOpKind
	code  uint8
	addr  uint8
	value uint8
	row   uint32
}

// OTPLayout describes where a Hynix chip keeps its factory read-retry table
// in OTP and the command sequence that exposes it.
//
// The OTP holds a 16 byte header (8 copies of the step count, 8 copies of
// the register count) followed by Copies copies of the table. Each copy is
// Steps*len(Registers) bytes followed by their bitwise inverse.
type OTPLayout struct {
	Name      string
	Registers []uint8
	Steps     int
	Copies    int

	enter []otpOp
	exit  []otpOp
}

const otpHeaderSize = 16

// [H27UCG8T2A|Read Retry: RRT in OTP]
var OTPH27UCG8T2A = &OTPLayout{
	Name:      "H27UCG8T2A",
	Registers: []uint8{0xcc, 0xbf, 0xaa, 0xab, 0xcd, 0xad, 0xae, 0xaf},
	Steps:     8,
	Copies:    8,
	enter: []otpOp{
		{kind: otpReset},
		{kind: otpParam, addr: 0xff, value: 0x40},
		{kind: otpColumn, addr: 0xcc, value: 0x4d},
		{kind: otpCmd, code: nandCmdCommitParam},
		{kind: otpCmd, code: nandCmdOTPEnter1},
		{kind: otpCmd, code: nandCmdOTPEnter2},
		{kind: otpCmd, code: nandCmdOTPEnter3},
		{kind: otpRead, row: 0x200},
	},
	exit: []otpOp{
		{kind: otpReset},
		{kind: otpCmd, code: nandCmdOTPExit},
	},
}

// [H27UCG8T2E|Read Retry: RRT in OTP]
var OTPH27UCG8T2E = &OTPLayout{
	Name:      "H27UCG8T2E",
	Registers: []uint8{0x38, 0x39, 0x3a, 0x3b},
	Steps:     8,
	Copies:    8,
	enter: []otpOp{
		{kind: otpReset},
		{kind: otpParam, addr: 0x38, value: 0x52},
		{kind: otpCmd, code: nandCmdCommitParam},
		{kind: otpCmd, code: nandCmdOTPEnter1},
		{kind: otpCmd, code: nandCmdOTPEnter2},
		{kind: otpCmd, code: nandCmdOTPEnter3},
		{kind: otpRead, row: 0x200},
	},
	exit: []otpOp{
		{kind: otpReset},
		{kind: otpParam, addr: 0x38, value: 0x00},
		{kind: otpRead, row: 0}, // dummy read
	},
}

// tableSize is the size of one copy without its inverse.
func (l *OTPLayout) tableSize() int { return l.Steps * len(l.Registers) }

// Size is the number of OTP bytes read.
func (l *OTPLayout) Size() int { return otpHeaderSize + l.Copies*2*l.tableSize() }

// Parse picks the read-retry policy out of a raw OTP dump.
func (l *OTPLayout) Parse(otp []byte) (RetryPolicy, error) {
	if len(otp) < l.Size() {
		return RetryPolicy{}, fmt.Errorf("OTP dump of %d bytes, want %d: %w", len(otp), l.Size(), ErrOTPCorrupt)
	}
	if !majority(otp[0:8], uint8(l.Steps)) || !majority(otp[8:16], uint8(len(l.Registers))) {
		return RetryPolicy{}, fmt.Errorf("bad header % x: %w", otp[:otpHeaderSize], ErrOTPCorrupt)
	}

	n := l.tableSize()
	for i := range l.Copies {
		cur := otp[otpHeaderSize+i*2*n:]
		if !validCopy(cur[:n], cur[n:2*n]) {
			glog.Warningf("%s: read retry table copy %d doesn't match its inverse", l.Name, i)
			continue
		}
		glog.V(1).Infof("%s: read retry table copy %d: % x", l.Name, i, cur[:n])
		return RetryPolicy{
			Steps:     l.Steps,
			Registers: slices.Clone(l.Registers),
			Values:    slices.Clone(cur[:n]),
		}, nil
	}
	return RetryPolicy{}, ErrOTPCorrupt
}

// majority reports whether more than half of the copies hold want.
func majority(copies []byte, want uint8) bool {
	n := 0
	for _, v := range copies {
		if v == want {
			n++
		}
	}
	return n > len(copies)/2
}

// validCopy accepts a table only if every byte agrees with its inverse.
func validCopy(orig, inv []byte) bool {
	for i := range orig {
		if orig[i]|inv[i] != 0xff {
			return false
		}
	}
	return true
}

func (c *Controller) runOTP(ops []otpOp) {
	for _, op := range ops {
		switch op.kind {
		case otpReset:
			c.Reset()
		case otpCmd:
			c.sendCmd(op.code)
		case otpParam:
			c.writeParam(nandCmdSetParam, op.addr, op.value)
		case otpColumn:
			c.writeParam(-1, op.addr, op.value)
		case otpRead:
			c.readAt(0, op.row)
		}
	}
}

// ReadOTPRetryTable dumps the read-retry area of the chip and parses it.
func (c *Controller) ReadOTPRetryTable(l *OTPLayout) (RetryPolicy, error) {
	buf := make([]byte, l.Size())
	c.runOTP(l.enter)
	c.readData(buf)
	c.runOTP(l.exit)
	glog.V(2).Infof("%s: RR count (8 copies), RR reg. count (8 copies): % x", l.Name, buf[:otpHeaderSize])
	return l.Parse(buf)
}

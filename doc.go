// Package nfc drives the NAND flash controller of Allwinner sunxi SoCs
// (A10/A13/A20) from a boot stage: it identifies the attached raw NAND chip,
// configures the controller for its geometry, and reads pages with hardware
// ECC, the data randomizer and vendor read-retry.
//
// All hardware access goes through a Controller, which owns the register
// block (Bus), the dedicated DMA channel (DMA) and the single page buffer
// (Buffer). Open maps the real hardware through /dev/mem; package nfctest
// provides a simulated controller and chip.
//
// # References:
//
// Allwinner
//   - [A10-UM]: A10 User Manual, NAND Flash Controller and DMA chapters (https://linux-sunxi.org/images/1/1e/Allwinner_A10_User_manual_V1.5.pdf)
//   - [sunxi-NFC]: linux-sunxi NAND controller notes (https://linux-sunxi.org/NFC_Register_Guide)
//
// NAND
//   - [ONFI]: Open NAND Flash Interface Specification 3.0, Command Set (https://www.onfi.org/specifications)
//   - [H27UCG8T2A]: Hynix H27UCG8T2ATR 64Gb MLC NAND datasheet, Read Retry (could not find the official public URL)
//   - [H27UCG8T2E]: Hynix H27UCG8T2ETR 64Gb MLC NAND datasheet, Read Retry (could not find the official public URL)
package nfc

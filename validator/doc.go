// Package validator decides whether a contact form submission may be delivered.
//
// Checks run cheapest first and stop at the first failure, so the CAPTCHA
// provider is only called for submissions that are otherwise complete:
//
//  1. honeypots  → SPAM    (KindSpam)
//  2. required   → INVALID (KindValidation, every missing field at once)
//  3. e-mail     → INVALID (KindValidation)
//  4. CAPTCHA    → INVALID for submitter-caused codes, ERROR (KindConfiguration)
//     for anything pointing at the deployment
package validator
